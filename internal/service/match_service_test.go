package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hardikbhesaniya/vcallserver/internal/models"
)

// fakeTransport records every call the core makes, and lets tests kill
// connections out from under the matchmaker.
type fakeTransport struct {
	mu    sync.Mutex
	dead  map[string]bool
	rooms map[string]map[string]bool
	sent  []sentEvent
}

type sentEvent struct {
	ConnID  string
	Event   string
	Payload interface{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		dead:  make(map[string]bool),
		rooms: make(map[string]map[string]bool),
	}
}

func (f *fakeTransport) kill(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead[connID] = true
}

func (f *fakeTransport) IsConnected(connID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead[connID]
}

func (f *fakeTransport) JoinRoom(roomID string, connIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.rooms[roomID]
	if !ok {
		members = make(map[string]bool)
		f.rooms[roomID] = members
	}
	for _, id := range connIDs {
		members[id] = true
	}
}

func (f *fakeTransport) LeaveRoom(roomID string, connIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range connIDs {
		delete(f.rooms[roomID], id)
	}
	if len(f.rooms[roomID]) == 0 {
		delete(f.rooms, roomID)
	}
}

func (f *fakeTransport) SendToConnection(connID, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEvent{ConnID: connID, Event: event, Payload: payload})
}

func (f *fakeTransport) BroadcastToRoom(roomID, event string, payload interface{}) {}

// countSent returns how many times event was sent to connID.
func (f *fakeTransport) countSent(connID, event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.sent {
		if e.ConnID == connID && e.Event == event {
			n++
		}
	}
	return n
}

// matchedPayload returns the last matched payload sent to connID.
func (f *fakeTransport) matchedPayload(t *testing.T, connID string) models.MatchedPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].ConnID == connID && f.sent[i].Event == models.EventMatched {
			return f.sent[i].Payload.(models.MatchedPayload)
		}
	}
	t.Fatalf("no matched event sent to %s", connID)
	return models.MatchedPayload{}
}

func newTestService() (*MatchService, *fakeTransport) {
	transport := newFakeTransport()
	return NewMatchService(transport, nil, zap.NewNop()), transport
}

func TestJoinQueue_PairsInOrder(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	assert.Equal(t, 1, svc.QueueLen())
	assert.Equal(t, 0, svc.RoomCount())

	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, 1, svc.RoomCount())

	matchedA := transport.matchedPayload(t, "conn-a")
	matchedB := transport.matchedPayload(t, "conn-b")
	assert.Equal(t, matchedA.RoomID, matchedB.RoomID)
	assert.Equal(t, "alice", matchedA.Initiator)
	assert.Equal(t, "alice", matchedB.Initiator)

	// Both connections were grouped into the room
	assert.True(t, transport.rooms[matchedA.RoomID]["conn-a"])
	assert.True(t, transport.rooms[matchedA.RoomID]["conn-b"])
}

func TestJoinQueue_DrainsToQuiescence(t *testing.T) {
	svc, _ := newTestService()

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, u := range users {
		require.NoError(t, svc.JoinQueue("conn-"+u, u))
		// Pairing is exhaustive: never more than one waiting entry
		assert.LessOrEqual(t, svc.QueueLen(), 1, "after join %d", i+1)
	}

	assert.Equal(t, 2, svc.RoomCount())
	assert.Equal(t, 1, svc.QueueLen())
}

func TestJoinQueue_RejectsReusedIdentity(t *testing.T) {
	svc, _ := newTestService()

	require.NoError(t, svc.JoinQueue("conn-1", "alice"))

	err := svc.JoinQueue("conn-2", "alice")
	assert.ErrorIs(t, err, ErrIdentityAlreadyUsed)
	assert.Equal(t, 1, svc.QueueLen())
}

func TestJoinQueue_RejectsReusedIdentityAfterDisconnect(t *testing.T) {
	svc, _ := newTestService()

	require.NoError(t, svc.JoinQueue("conn-1", "alice"))
	svc.Disconnect("conn-1")
	assert.Equal(t, 0, svc.QueueLen())

	// Identities are single use for the process lifetime
	err := svc.JoinQueue("conn-2", "alice")
	assert.ErrorIs(t, err, ErrIdentityAlreadyUsed)
	assert.Equal(t, 0, svc.QueueLen())
}

func TestMatchmaker_RequeuesSurvivorOfDeadPeer(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	transport.kill("conn-a")

	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, 1, svc.QueueLen())
	assert.Zero(t, transport.countSent("conn-b", models.EventMatched))

	// The requeued survivor pairs immediately with the next arrival
	require.NoError(t, svc.JoinQueue("conn-c", "carol"))
	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, "bob", transport.matchedPayload(t, "conn-c").Initiator)
}

func TestMatchmaker_BothPeersDead(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	require.Equal(t, 1, svc.RoomCount())

	// Fresh queue pair that both die before the next drain
	require.NoError(t, svc.JoinQueue("conn-c", "carol"))
	transport.kill("conn-c")
	transport.kill("conn-d")
	require.NoError(t, svc.JoinQueue("conn-d", "dave"))

	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, 0, svc.QueueLen())
}

func TestSkip_TearsDownAndRequeues(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	roomID := transport.matchedPayload(t, "conn-a").RoomID

	svc.Skip(roomID, "alice", "conn-a")

	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, 1, transport.countSent("conn-b", models.EventUserDisconnected))
	assert.Equal(t, 1, svc.QueueLen())
	_, stillGrouped := transport.rooms[roomID]
	assert.False(t, stillGrouped)
}

func TestSkip_MissingRoomStillRequeues(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	roomID := transport.matchedPayload(t, "conn-a").RoomID

	// Both sides skip; the second one finds the room already gone
	svc.Skip(roomID, "alice", "conn-a")
	svc.Skip(roomID, "bob", "conn-b")

	assert.Equal(t, 1, transport.countSent("conn-b", models.EventUserDisconnected))
	assert.Zero(t, transport.countSent("conn-a", models.EventUserDisconnected))

	// Both requesters went back to the queue and re-paired
	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, 0, svc.QueueLen())
}

func TestLeave_NeverRequeues(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	roomID := transport.matchedPayload(t, "conn-a").RoomID

	svc.Leave(roomID, "alice", "conn-a")

	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, 1, transport.countSent("conn-b", models.EventUserDisconnected))
	assert.Equal(t, 1, transport.countSent("conn-a", models.EventFullyDisconnected))
}

func TestLeave_Idempotent(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	roomID := transport.matchedPayload(t, "conn-a").RoomID

	svc.Leave(roomID, "alice", "conn-a")
	svc.Leave(roomID, "alice", "conn-a")

	// Second call is a benign no-op that still acknowledges
	assert.Equal(t, 2, transport.countSent("conn-a", models.EventFullyDisconnected))
	assert.Equal(t, 1, transport.countSent("conn-b", models.EventUserDisconnected))
	assert.Equal(t, 0, svc.QueueLen())
}

func TestDisconnect_QueuedUser(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	svc.Disconnect("conn-a")

	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, 0, svc.RoomCount())
	assert.Empty(t, transport.sent, "no one to notify")
}

func TestDisconnect_PairedUser(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	roomID := transport.matchedPayload(t, "conn-a").RoomID

	svc.Disconnect("conn-a")

	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, 1, transport.countSent("conn-b", models.EventUserDisconnected))
	// The dropped identity is consumed, never re-enqueued
	assert.Equal(t, 0, svc.QueueLen())
	_, stillGrouped := transport.rooms[roomID]
	assert.False(t, stillGrouped)
}

func TestDisconnect_UnknownConnection(t *testing.T) {
	svc, transport := newTestService()

	svc.Disconnect("conn-never-joined")

	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, 0, svc.RoomCount())
	assert.Empty(t, transport.sent)
}

func TestSkipThenDisconnect_PeerCycles(t *testing.T) {
	svc, transport := newTestService()

	require.NoError(t, svc.JoinQueue("conn-a", "alice"))
	require.NoError(t, svc.JoinQueue("conn-b", "bob"))
	roomID := transport.matchedPayload(t, "conn-a").RoomID

	// alice skips, bob drops, carol arrives and pairs with alice
	svc.Skip(roomID, "alice", "conn-a")
	svc.Disconnect("conn-b")
	require.NoError(t, svc.JoinQueue("conn-c", "carol"))

	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, 0, svc.QueueLen())
	second := transport.matchedPayload(t, "conn-c")
	assert.Equal(t, "alice", second.Initiator)
	assert.NotEqual(t, roomID, second.RoomID)
}
