package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Conversation is a titled, owned thread of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// LastAgentLabel returns the agent label of the most recent assistant message,
// or "" when the assistant has not spoken yet.
func (c *Conversation) LastAgentLabel() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if label := c.Messages[i].AgentLabel(); label != "" {
			return label
		}
	}
	return ""
}

// HasMessage reports whether a message with the given id is present.
func (c *Conversation) HasMessage(messageID string) bool {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return true
		}
	}
	return false
}

// Author is the sender of a message: either a UserAuthor or an AgentAuthor.
// The two variants never coexist on one message.
type Author interface {
	Role() Role
	isAuthor()
}

// UserAuthor is a message written by a signed-in user.
type UserAuthor struct {
	SenderID string
}

// Role implements Author.
func (UserAuthor) Role() Role { return RoleUser }
func (UserAuthor) isAuthor()  {}

// AgentAuthor is a message written by an assistant persona.
type AgentAuthor struct {
	Label string
}

// Role implements Author.
func (AgentAuthor) Role() Role { return RoleAssistant }
func (AgentAuthor) isAuthor()  {}

// Message represents one turn in a conversation.
type Message struct {
	ID             string
	ConversationID string
	Author         Author
	Content        string
	CreatedAt      time.Time
}

// Role returns the role derived from the message author.
func (m Message) Role() Role {
	if m.Author == nil {
		return ""
	}
	return m.Author.Role()
}

// SenderID returns the sending user id for user messages, "" otherwise.
func (m Message) SenderID() string {
	if a, ok := m.Author.(UserAuthor); ok {
		return a.SenderID
	}
	return ""
}

// AgentLabel returns the persona label for assistant messages, "" otherwise.
func (m Message) AgentLabel() string {
	if a, ok := m.Author.(AgentAuthor); ok {
		return a.Label
	}
	return ""
}

type messageJSON struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	SenderID       string    `json:"sender_id,omitempty"`
	AgentLabel     string    `json:"agent_label,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// MarshalJSON flattens the author into role plus sender_id or agent_label.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role(),
		SenderID:       m.SenderID(),
		AgentLabel:     m.AgentLabel(),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	})
}

// UnmarshalJSON rebuilds the author variant from the role field.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	author, err := NewAuthor(raw.Role, raw.SenderID, raw.AgentLabel)
	if err != nil {
		return err
	}
	*m = Message{
		ID:             raw.ID,
		ConversationID: raw.ConversationID,
		Author:         author,
		Content:        raw.Content,
		CreatedAt:      raw.CreatedAt,
	}
	return nil
}

// NewAuthor builds the author variant matching role. The field that does not
// belong to the role is ignored.
func NewAuthor(role Role, senderID, agentLabel string) (Author, error) {
	switch role {
	case RoleUser:
		return UserAuthor{SenderID: senderID}, nil
	case RoleAssistant:
		return AgentAuthor{Label: agentLabel}, nil
	default:
		return nil, fmt.Errorf("unknown message role %q", role)
	}
}
