package service

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hardikbhesaniya/vcallserver/internal/models"
	"github.com/hardikbhesaniya/vcallserver/pkg/metrics"
)

// Transport is the narrow contract the matching core needs from the
// WebSocket layer. The signaling Hub implements it; tests use a fake.
type Transport interface {
	IsConnected(connID string) bool
	JoinRoom(roomID string, connIDs ...string)
	LeaveRoom(roomID string, connIDs ...string)
	SendToConnection(connID, event string, payload interface{})
	BroadcastToRoom(roomID, event string, payload interface{})
}

// MatchService owns the identity registry, the waiting queue and the room
// table. Every operation takes the one mutex, so each join/skip/leave/
// disconnect sequence is atomic with respect to all the others. Pure
// signaling relays never come through here.
type MatchService struct {
	mu         sync.Mutex
	identities *identityRegistry
	queue      *waitingQueue
	rooms      *roomTable
	transport  Transport
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewMatchService creates a MatchService on top of the given transport.
// collector may be nil (tests).
func NewMatchService(transport Transport, collector *metrics.Collector, logger *zap.Logger) *MatchService {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &MatchService{
		identities: newIdentityRegistry(),
		queue:      newWaitingQueue(),
		rooms:      newRoomTable(),
		transport:  transport,
		collector:  collector,
		logger:     logger,
	}
}

// JoinQueue registers the identity, enqueues it and drains the matchmaker.
// Returns ErrIdentityAlreadyUsed for a reused identity; the caller reports
// that to the client as join_rejected.
func (s *MatchService) JoinQueue(connID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.identities.Register(userID); err != nil {
		if s.collector != nil {
			s.collector.RecordJoinRejected()
		}
		s.logger.Info("Join rejected",
			zap.String("userId", userID),
			zap.String("connId", connID),
			zap.Error(err))
		return err
	}

	s.identities.Bind(userID, connID)
	s.queue.Purge(userID, connID)
	s.queue.Enqueue(Entry{ConnID: connID, UserID: userID})

	s.logger.Info("User joined the waiting queue",
		zap.String("userId", userID),
		zap.Int("queueLen", s.queue.Len()))

	s.matchLocked()
	s.updateGaugesLocked()
	return nil
}

// Skip tears the room down, re-enqueues the requester and drains the
// matchmaker. A missing room means the peer already tore it down; the
// requester is still re-enqueued.
func (s *MatchService) Skip(roomID, userID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms.Get(roomID); ok {
		if peer, ok := room.Peer(userID); ok {
			s.transport.SendToConnection(peer.ConnID, models.EventUserDisconnected, nil)
		}
		s.transport.LeaveRoom(roomID, room.Participants[0].ConnID, room.Participants[1].ConnID)
		s.rooms.Delete(roomID)
		s.logger.Info("Room skipped",
			zap.String("roomId", roomID),
			zap.String("userId", userID))
	}

	s.queue.Purge(userID, connID)
	s.queue.Enqueue(Entry{ConnID: connID, UserID: userID})

	s.matchLocked()
	s.updateGaugesLocked()
}

// Leave tears the room down for good: the leaver is purged from the queue
// and never re-enqueued. Calling it on a room that is already gone is a
// success, so a double leave stays idempotent.
func (s *MatchService) Leave(roomID, userID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms.Get(roomID)
	if !ok {
		s.transport.SendToConnection(connID, models.EventFullyDisconnected, nil)
		return
	}

	if peer, ok := room.Peer(userID); ok {
		s.transport.SendToConnection(peer.ConnID, models.EventUserDisconnected, nil)
	}
	s.transport.LeaveRoom(roomID, room.Participants[0].ConnID, room.Participants[1].ConnID)
	s.rooms.Delete(roomID)
	s.queue.Purge(userID, connID)
	s.transport.SendToConnection(connID, models.EventFullyDisconnected, nil)

	s.logger.Info("User left room",
		zap.String("roomId", roomID),
		zap.String("userId", userID))

	s.updateGaugesLocked()
}

// Disconnect reconciles all state for a dropped connection. The identity
// path covers clients that completed join_queue; the raw-connection path
// covers everything else. Neither re-enqueues the dropped side, and no
// room survives with one participant.
func (s *MatchService) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity, ok := s.identities.Resolve(connID); ok {
		s.identities.Unbind(identity, connID)
		s.queue.Purge(identity, connID)
		if room, ok := s.rooms.FindByIdentity(identity); ok {
			s.teardownRoomLocked(room, connID)
		}
		s.logger.Info("User disconnected",
			zap.String("userId", identity),
			zap.String("connId", connID))
	} else {
		// Connection never completed join_queue
		s.queue.Purge("", connID)
		if room, ok := s.rooms.FindByConn(connID); ok {
			s.teardownRoomLocked(room, connID)
		}
		s.logger.Debug("Unregistered connection dropped",
			zap.String("connId", connID))
	}

	s.updateGaugesLocked()
}

// teardownRoomLocked deletes the room and notifies the surviving peer of
// the given connection, if one exists.
func (s *MatchService) teardownRoomLocked(room *Room, connID string) {
	if peer, ok := room.PeerByConn(connID); ok {
		s.transport.SendToConnection(peer.ConnID, models.EventUserDisconnected, nil)
	}
	s.transport.LeaveRoom(room.ID, room.Participants[0].ConnID, room.Participants[1].ConnID)
	s.rooms.Delete(room.ID)
}

// matchLocked drains the queue to quiescence, pairing the two oldest live
// entries into fresh rooms. A dequeued entry whose connection has died is
// dropped (its own disconnect path cleans up) and the survivor goes back
// to the tail; the loop then keeps going, so a requeued entry can pair
// again immediately.
func (s *MatchService) matchLocked() {
	for {
		first, second, ok := s.queue.DequeuePair()
		if !ok {
			return
		}

		firstLive := s.transport.IsConnected(first.ConnID)
		secondLive := s.transport.IsConnected(second.ConnID)
		if !firstLive || !secondLive {
			if firstLive {
				s.queue.Requeue(first)
			}
			if secondLive {
				s.queue.Requeue(second)
			}
			if s.collector != nil {
				s.collector.RecordMatchFailure()
			}
			s.logger.Warn("Match failed, queued connection dead",
				zap.String("user1", first.UserID),
				zap.String("user2", second.UserID),
				zap.Bool("user1Live", firstLive),
				zap.Bool("user2Live", secondLive))
			continue
		}

		roomID := uuid.NewString()
		s.rooms.Create(roomID, first, second)
		s.transport.JoinRoom(roomID, first.ConnID, second.ConnID)

		// Both sides get the same initiator: the first-dequeued user
		// starts the WebRTC handshake.
		matched := models.MatchedPayload{RoomID: roomID, Initiator: first.UserID}
		s.transport.SendToConnection(first.ConnID, models.EventMatched, matched)
		s.transport.SendToConnection(second.ConnID, models.EventMatched, matched)

		if s.collector != nil {
			s.collector.RecordMatchFormed()
		}
		s.logger.Info("Matched users",
			zap.String("user1", first.UserID),
			zap.String("user2", second.UserID),
			zap.String("roomId", roomID))
	}
}

func (s *MatchService) updateGaugesLocked() {
	if s.collector == nil {
		return
	}
	s.collector.SetQueueDepth(s.queue.Len())
	s.collector.SetActiveRooms(s.rooms.Len())
}

// QueueLen reports the current queue depth.
func (s *MatchService) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// RoomCount reports the number of active rooms.
func (s *MatchService) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.Len()
}
