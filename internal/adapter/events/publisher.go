// Package events fans conversation changes out to external subscribers.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
)

// Event types.
const (
	TypeConversationCreated = "conversation.created"
	TypeConversationRenamed = "conversation.renamed"
	TypeConversationDeleted = "conversation.deleted"
	TypeMessageAppended     = "message.appended"
)

// Event is one change to a conversation.
type Event struct {
	Type           string    `json:"type"`
	OwnerID        string    `json:"owner_id"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	AgentLabel     string    `json:"agent_label,omitempty"`
	Content        string    `json:"content,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
func (NoopPublisher) Close() error                                { return nil }

// NewPublisher connects to NATS when cfg.NATSURL is set and returns a
// NoopPublisher otherwise.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	if cfg.NATSURL == "" {
		log.Debug().Msg("nats url not set, conversation events disabled")
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
}
