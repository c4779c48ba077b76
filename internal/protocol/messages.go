// Package protocol defines the WebSocket message types of the visitor live feed.
// All messages are JSON-encoded and wrapped in an Envelope for uniform routing.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of message in the feed protocol.
type MessageType string

const (
	// Server → Client
	MsgSubscribed MessageType = "feed.subscribed"
	MsgCheckedIn  MessageType = "visit.checked_in"
	MsgCheckedOut MessageType = "visit.checked_out"
	MsgPing       MessageType = "feed.ping"

	// Client → Server
	MsgPong MessageType = "feed.pong"

	// Bidirectional
	MsgError MessageType = "error"
)

// Envelope is the top-level message wrapper for all feed communication.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"` // Message ID for correlation and deduplication.
	CompanyID string          `json:"company_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope creates an Envelope with a fresh ID and current timestamp.
func NewEnvelope(msgType MessageType, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Envelope{
		Type:      msgType,
		ID:        uuid.New().String(),
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the Payload into the given target.
func (e *Envelope) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// --- Server → Client payloads ---

// Subscribed is sent once after the connection is accepted.
type Subscribed struct {
	Scope string `json:"scope"`
}

// VisitEvent is the payload of MsgCheckedIn and MsgCheckedOut.
type VisitEvent struct {
	VisitID      string     `json:"visit_id"`
	VisitorID    string     `json:"visitor_id"`
	VisitorName  string     `json:"visitor_name,omitempty"`
	HostUserID   string     `json:"host_user_id,omitempty"`
	Purpose      string     `json:"purpose,omitempty"`
	Badge        string     `json:"badge,omitempty"`
	CheckedInAt  time.Time  `json:"checked_in_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

// ErrorPayload is sent with MsgError.
type ErrorPayload struct {
	Message string `json:"message"`
}
