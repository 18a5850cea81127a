package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// OpCode represents the type of gateway message
type OpCode int

const (
	// Client -> Server operations
	OpIdentify  OpCode = 0 // Select the server to receive events for
	OpHeartbeat OpCode = 1 // Keep-alive ping

	// Server -> Client operations
	OpDispatch       OpCode = 10 // Event dispatch
	OpHeartbeatAck   OpCode = 11 // Heartbeat acknowledgment
	OpHello          OpCode = 12 // Initial connection info
	OpReady          OpCode = 13 // Subscription accepted
	OpInvalidSession OpCode = 14 // Identify rejected
)

// EventType represents the type of dispatched event
type EventType string

const (
	EventReady           EventType = "READY"
	EventChannelUpdate   EventType = "CHANNEL_UPDATE"
	EventMessageCreate   EventType = "MESSAGE_CREATE"
	EventServerMemberAdd EventType = "SERVER_MEMBER_ADD"
)

// Message represents a gateway message envelope
type Message struct {
	Op   OpCode          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"` // Sequence number for dispatches
	Type EventType       `json:"t,omitempty"` // Event type for dispatches
}

// NewMessage creates a new protocol message
func NewMessage(op OpCode, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode gateway payload", goerr.V("op", op))
		}
	}
	return &Message{
		Op:   op,
		Data: rawData,
	}, nil
}

// NewDispatch creates a new dispatch message
func NewDispatch(eventType EventType, seq int64, data any) (*Message, error) {
	msg, err := NewMessage(OpDispatch, data)
	if err != nil {
		return nil, err
	}
	msg.Seq = &seq
	msg.Type = eventType
	return msg, nil
}

// Decode unmarshals the message data into v
func (m *Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return goerr.New("gateway message has no data", goerr.V("op", m.Op), goerr.V("type", m.Type))
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return goerr.Wrap(err, "failed to decode gateway payload", goerr.V("op", m.Op), goerr.V("type", m.Type))
	}
	return nil
}

// --- Client -> Server Payloads ---

// IdentifyPayload selects the server whose events the connection receives
type IdentifyPayload struct {
	ServerID uuid.UUID `json:"server_id"`
	UserID   uuid.UUID `json:"user_id"`
	Token    string    `json:"token,omitempty"`
}

// HeartbeatPayload is sent to keep the connection alive
type HeartbeatPayload struct {
	LastSequence *int64 `json:"last_sequence"`
}

// --- Server -> Client Payloads ---

// HelloPayload is sent on initial connection
type HelloPayload struct {
	HeartbeatInterval int `json:"heartbeat_interval"` // Milliseconds
}

// ReadyPayload is sent after a successful identify
type ReadyPayload struct {
	SessionID string         `json:"session_id"`
	Server    *models.Server `json:"server"`
}

// --- Event Payloads ---

// ChannelUpdatePayload carries the channel list of a server after one or
// more channels moved
type ChannelUpdatePayload struct {
	ServerID uuid.UUID         `json:"server_id"`
	Channels []*models.Channel `json:"channels"`
}

// MessageCreatePayload is dispatched when a message is created
type MessageCreatePayload struct {
	*models.Message
	ServerID uuid.UUID    `json:"server_id"`
	Author   *models.User `json:"author,omitempty"`
}

// ServerMemberAddPayload is dispatched when a member joins a server
type ServerMemberAddPayload struct {
	ServerID uuid.UUID    `json:"server_id"`
	User     *models.User `json:"user"`
	Nickname string       `json:"nickname,omitempty"`
}

// --- Error Payloads ---

// ErrorPayload represents an error response
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrorCodeUnknown        = 0
	ErrorCodeUnauthorized   = 4001
	ErrorCodeInvalidPayload = 4002
	ErrorCodeNotFound       = 4003
)

// CloseCode represents gateway close codes
type CloseCode int

const (
	CloseNormal           CloseCode = 1000
	CloseGoingAway        CloseCode = 1001
	CloseUnknownError     CloseCode = 4000
	CloseUnknownOpCode    CloseCode = 4001
	CloseDecodeError      CloseCode = 4002
	CloseNotAuthenticated CloseCode = 4003
	CloseAuthFailed       CloseCode = 4004
)
