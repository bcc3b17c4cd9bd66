package signaling

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hardikbhesaniya/vcallserver/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; SDP offers run a few KB
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the configured CORS origins
		return true
	},
}

// EventHandler receives the queue and lifecycle events decoded from a
// connection. MatchService implements it.
type EventHandler interface {
	JoinQueue(connID, userID string) error
	Skip(roomID, userID, connID string)
	Leave(roomID, userID, connID string)
	Disconnect(connID string)
}

// Client is one WebSocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan *Message
	id      string
	handler EventHandler
	logger  *zap.Logger
}

// NewClient creates a Client with a fresh connection id.
func NewClient(hub *Hub, conn *websocket.Conn, handler EventHandler, logger *zap.Logger) *Client {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan *Message, 256),
		id:      uuid.NewString(),
		handler: handler,
		logger:  logger,
	}
}

// readPump reads frames off the socket, validates them at the boundary
// and dispatches. Malformed frames are logged and dropped; they never
// reach the matching core.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.handler.Disconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					zap.String("connId", c.id),
					zap.Error(err))
			}
			break
		}

		var envelope models.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.logger.Warn("Dropping malformed frame",
				zap.String("connId", c.id),
				zap.Error(err))
			continue
		}
		c.dispatch(&envelope)
	}
}

func (c *Client) dispatch(envelope *models.Envelope) {
	switch envelope.Type {
	case models.EventJoinQueue:
		var payload models.JoinQueuePayload
		if !c.decode(envelope, &payload) || payload.UserID == "" {
			return
		}
		if err := c.handler.JoinQueue(c.id, payload.UserID); err != nil {
			c.hub.SendToConnection(c.id, models.EventJoinRejected,
				models.JoinRejectedPayload{Message: err.Error()})
		}

	case models.EventOffer, models.EventAnswer, models.EventICECandidate:
		// Pure relay: no shared state is touched, the frame goes
		// straight to the room group.
		var payload models.SignalPayload
		if !c.decode(envelope, &payload) || payload.RoomID == "" {
			return
		}
		c.hub.BroadcastToRoom(payload.RoomID, envelope.Type, envelope.Payload)
		if c.hub.collector != nil {
			c.hub.collector.RecordSignalRelayed(envelope.Type)
		}

	case models.EventSkip:
		var payload models.RoomUserPayload
		if !c.decode(envelope, &payload) || payload.RoomID == "" || payload.UserID == "" {
			return
		}
		c.handler.Skip(payload.RoomID, payload.UserID, c.id)

	case models.EventLeaveRoom:
		var payload models.RoomUserPayload
		if !c.decode(envelope, &payload) || payload.RoomID == "" || payload.UserID == "" {
			return
		}
		c.handler.Leave(payload.RoomID, payload.UserID, c.id)
		c.hub.SendToConnection(c.id, models.EventLeaveRoomAck,
			models.AckPayload{Success: true})

	default:
		c.logger.Warn("Unknown event type",
			zap.String("connId", c.id),
			zap.String("type", envelope.Type))
	}
}

func (c *Client) decode(envelope *models.Envelope, out interface{}) bool {
	if err := json.Unmarshal(envelope.Payload, out); err != nil {
		c.logger.Warn("Dropping frame with invalid payload",
			zap.String("connId", c.id),
			zap.String("type", envelope.Type),
			zap.Error(err))
		return false
	}
	return true
}

// writePump forwards hub messages to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal message",
					zap.String("connId", c.id),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message",
					zap.String("connId", c.id),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the HTTP request and starts the client pumps.
func ServeWs(hub *Hub, handler EventHandler, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := NewClient(hub, conn, handler, hub.logger)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
