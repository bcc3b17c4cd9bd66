package models

import "encoding/json"

// Inbound event types
const (
	EventJoinQueue    = "join_queue"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice_candidate"
	EventSkip         = "skip"
	EventLeaveRoom    = "leave_room"
)

// Outbound event types
const (
	EventJoinRejected      = "join_rejected"
	EventMatched           = "matched"
	EventUserDisconnected  = "user_disconnected"
	EventFullyDisconnected = "fully_disconnected"
	EventLeaveRoomAck      = "leave_room_ack"
)

// Envelope is the wire frame for every WebSocket message, in both
// directions. Payload stays raw on the inbound path so each handler can
// decode its own schema after the type switch.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinQueuePayload enters the caller into the waiting queue
type JoinQueuePayload struct {
	UserID string `json:"userId"`
}

// RoomUserPayload is shared by skip and leave_room
type RoomUserPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// SignalPayload carries an offer/answer/ice_candidate frame. Only the
// room id is inspected; the rest of the payload is relayed opaquely.
type SignalPayload struct {
	RoomID string `json:"roomId"`
}

// MatchedPayload notifies both participants of a new pairing. Initiator
// is always the first-dequeued identity and is sent identically to both
// sides; the designated peer starts the WebRTC handshake.
type MatchedPayload struct {
	RoomID    string `json:"roomId"`
	Initiator string `json:"initiator"`
}

// JoinRejectedPayload reports a refused registration
type JoinRejectedPayload struct {
	Message string `json:"message"`
}

// AckPayload acknowledges an explicit leave_room request
type AckPayload struct {
	Success bool `json:"success"`
}
