package service

// Entry is one identity waiting to be paired, tied to its live connection.
type Entry struct {
	ConnID string
	UserID string
}

// waitingQueue is the FIFO pool of identities awaiting a match. Insertion
// order is the only fairness guarantee. Not safe for concurrent use on its
// own; the MatchService mutex guards it.
type waitingQueue struct {
	entries []Entry
}

func newWaitingQueue() *waitingQueue {
	return &waitingQueue{}
}

// Purge drops every entry matching the identity or the connection id.
// Idempotent; called before each insert and on every teardown path so an
// identity never queues twice.
func (q *waitingQueue) Purge(identity, connID string) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if (identity != "" && e.UserID == identity) || e.ConnID == connID {
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
}

// Enqueue appends to the tail.
func (q *waitingQueue) Enqueue(e Entry) {
	q.entries = append(q.entries, e)
}

// DequeuePair removes and returns the two oldest entries, or reports false
// leaving the queue untouched when fewer than two are waiting.
func (q *waitingQueue) DequeuePair() (Entry, Entry, bool) {
	if len(q.entries) < 2 {
		return Entry{}, Entry{}, false
	}
	first, second := q.entries[0], q.entries[1]
	q.entries = append(q.entries[:0], q.entries[2:]...)
	return first, second, true
}

// Requeue reinserts a dequeued entry at the tail. Used when its would-be
// peer turned out to be dead; original position is not restored.
func (q *waitingQueue) Requeue(e Entry) {
	q.entries = append(q.entries, e)
}

// Len reports the number of waiting entries.
func (q *waitingQueue) Len() int {
	return len(q.entries)
}
