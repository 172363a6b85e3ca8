package ws

import "github.com/mr-gyb/1.9-Updated-Backend/internal/session"

// Client -> server message types.
const (
	TypeCreate      = "create"
	TypeSend        = "send"
	TypeSetActive   = "set_active"
	TypeRename      = "rename"
	TypeDelete      = "delete"
	TypeSelectAgent = "select_agent"
	TypeRefresh     = "refresh"
	TypeReconcile   = "reconcile"
)

// Server -> client message types.
const (
	TypeView         = "view"
	TypeAck          = "ack"
	TypeError        = "error"
	TypeSessionEnded = "session_ended"
)

// Error codes.
const (
	ErrorCodeInvalidMessage = "invalid_message"
)

// ClientMessage is a command sent by the UI. Which fields are read depends
// on Type.
type ClientMessage struct {
	Type           string `json:"type"`
	RequestID      string `json:"request_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Title          string `json:"title,omitempty"`
	Agent          string `json:"agent,omitempty"`
}

// BaseMessage contains fields common to all server messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
}

// ViewMessage carries the latest session view.
type ViewMessage struct {
	BaseMessage
	View session.View `json:"view"`
}

// AckMessage answers a client command.
type AckMessage struct {
	BaseMessage
	OK             bool   `json:"ok"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ErrorMessage reports a malformed client message.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
