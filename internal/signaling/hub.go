package signaling

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hardikbhesaniya/vcallserver/pkg/metrics"
)

// Hub tracks live WebSocket connections and the named room groups used
// for relaying negotiation frames. It implements service.Transport.
type Hub struct {
	// Live connections (connection id -> *Client)
	clients map[string]*Client
	// Room groups (room id -> member connection ids)
	rooms map[string]map[string]*Client
	mu    sync.RWMutex

	// Outbound delivery channel
	broadcast chan *Message

	// Register/unregister channels
	register   chan *Client
	unregister chan *Client

	collector *metrics.Collector
	logger    *zap.Logger
}

// Message is one outbound WebSocket frame. Exactly one of ConnID or
// RoomID selects the destination.
type Message struct {
	ConnID  string      `json:"-"`
	RoomID  string      `json:"-"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewHub creates a Hub. collector may be nil (tests).
func NewHub(collector *metrics.Collector, logger *zap.Logger) *Hub {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		collector:  collector,
		logger:     logger,
	}
}

// Run processes registration and delivery until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliverMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	if h.collector != nil {
		h.collector.SetConnections(len(h.clients))
	}
	h.logger.Info("WebSocket client connected",
		zap.String("connId", client.id),
		zap.Int("totalClients", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.id]; !exists {
		return
	}
	delete(h.clients, client.id)
	// Drop the connection from any room group it was still in
	for roomID, members := range h.rooms {
		if _, ok := members[client.id]; ok {
			delete(members, client.id)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	close(client.send)
	if h.collector != nil {
		h.collector.SetConnections(len(h.clients))
	}
	h.logger.Info("WebSocket client disconnected",
		zap.String("connId", client.id),
		zap.Int("totalClients", len(h.clients)))
}

func (h *Hub) deliverMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if message.RoomID != "" {
		for _, client := range h.rooms[message.RoomID] {
			h.send(client, message)
		}
		return
	}
	if client, exists := h.clients[message.ConnID]; exists {
		h.send(client, message)
	}
}

// send is fire-and-forget: a client that cannot keep up gets dropped
// rather than blocking delivery to everyone else.
func (h *Hub) send(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		h.logger.Warn("Client send channel full, dropping connection",
			zap.String("connId", client.id))
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// IsConnected reports whether the connection is still registered.
func (h *Hub) IsConnected(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}

// JoinRoom adds the connections to the room group, creating it on first
// use. Unknown connection ids are ignored.
func (h *Hub) JoinRoom(roomID string, connIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client, len(connIDs))
		h.rooms[roomID] = members
	}
	for _, id := range connIDs {
		if client, exists := h.clients[id]; exists {
			members[id] = client
		}
	}
}

// LeaveRoom removes the connections from the room group and deletes the
// group once empty.
func (h *Hub) LeaveRoom(roomID string, connIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for _, id := range connIDs {
		delete(members, id)
	}
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// SendToConnection queues an event for a single connection.
func (h *Hub) SendToConnection(connID, event string, payload interface{}) {
	h.broadcast <- &Message{
		ConnID:  connID,
		Type:    event,
		Payload: payload,
	}
}

// BroadcastToRoom queues an event for every member of the room.
func (h *Hub) BroadcastToRoom(roomID, event string, payload interface{}) {
	h.broadcast <- &Message{
		RoomID:  roomID,
		Type:    event,
		Payload: payload,
	}
}
