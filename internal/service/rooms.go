package service

import "time"

// Room is an active two-party session. Rooms always hold exactly two
// participants and are deleted whole, never resized or half-emptied.
type Room struct {
	ID           string
	Participants [2]Entry
	CreatedAt    time.Time
}

// Peer returns the participant other than the given identity.
func (r *Room) Peer(identity string) (Entry, bool) {
	for _, p := range r.Participants {
		if p.UserID != identity {
			return p, true
		}
	}
	return Entry{}, false
}

// PeerByConn returns the participant other than the given connection.
func (r *Room) PeerByConn(connID string) (Entry, bool) {
	for _, p := range r.Participants {
		if p.ConnID != connID {
			return p, true
		}
	}
	return Entry{}, false
}

// roomTable maps room ids to active rooms. Not safe for concurrent use on
// its own; the MatchService mutex guards it.
type roomTable struct {
	rooms map[string]*Room
}

func newRoomTable() *roomTable {
	return &roomTable{rooms: make(map[string]*Room)}
}

// Create adds a room pairing the two entries.
func (t *roomTable) Create(id string, first, second Entry) *Room {
	room := &Room{
		ID:           id,
		Participants: [2]Entry{first, second},
		CreatedAt:    time.Now(),
	}
	t.rooms[id] = room
	return room
}

func (t *roomTable) Get(id string) (*Room, bool) {
	room, ok := t.rooms[id]
	return room, ok
}

func (t *roomTable) Delete(id string) {
	delete(t.rooms, id)
}

// FindByIdentity scans for the room holding the identity, if any.
func (t *roomTable) FindByIdentity(identity string) (*Room, bool) {
	for _, room := range t.rooms {
		for _, p := range room.Participants {
			if p.UserID == identity {
				return room, true
			}
		}
	}
	return nil, false
}

// FindByConn scans for the room holding the connection, if any.
func (t *roomTable) FindByConn(connID string) (*Room, bool) {
	for _, room := range t.rooms {
		for _, p := range room.Participants {
			if p.ConnID == connID {
				return room, true
			}
		}
	}
	return nil, false
}

// Len reports the number of active rooms.
func (t *roomTable) Len() int {
	return len(t.rooms)
}
