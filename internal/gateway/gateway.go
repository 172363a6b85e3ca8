// Package gateway is the only boundary between the conversation core and the
// remote store. It issues the store commands and translates their failures
// into RemoteReadError / RemoteWriteError.
package gateway

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/repository"
)

// Gateway sends conversation and message commands to a remote store.
// It holds no local state.
type Gateway struct {
	store repository.Store
}

// New creates a gateway over the given store.
func New(store repository.Store) *Gateway {
	return &Gateway{store: store}
}

// CreateConversation creates an empty conversation owned by ownerID.
// An empty title becomes "New Chat".
func (g *Gateway) CreateConversation(ctx context.Context, ownerID, title string) (*domain.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = domain.DefaultConversationTitle
	}
	row, err := g.store.InsertChat(ctx, ownerID, title)
	if err != nil {
		return nil, writeError("create conversation", err)
	}
	conv := conversationFromRow(*row)
	return &conv, nil
}

// FetchConversation reads a conversation header and then its messages in
// creation order. It returns nil, nil when the conversation does not exist.
func (g *Gateway) FetchConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row, err := g.store.SelectChat(ctx, id)
	if err != nil {
		return nil, readError("fetch conversation", err)
	}
	if row == nil {
		return nil, nil
	}

	rows, err := g.store.SelectMessages(ctx, id)
	if err != nil {
		return nil, readError("fetch messages", err)
	}

	conv := conversationFromRow(*row)
	conv.Messages, err = messagesFromRows(rows)
	if err != nil {
		return nil, readError("fetch messages", err)
	}
	return &conv, nil
}

// ListConversations returns every conversation of ownerID, most recently
// updated first, each populated with its messages. It issues one header query
// and one batched message query regardless of the number of conversations.
func (g *Gateway) ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error) {
	chats, err := g.store.SelectChatsByUser(ctx, ownerID)
	if err != nil {
		return nil, readError("list conversations", err)
	}
	if len(chats) == 0 {
		return []domain.Conversation{}, nil
	}

	ids := make([]string, len(chats))
	for i, c := range chats {
		ids[i] = c.ID
	}
	rows, err := g.store.SelectMessagesIn(ctx, ids)
	if err != nil {
		return nil, readError("list messages", err)
	}

	// Group messages by chat id, keeping the store's creation order.
	byChat := make(map[string][]domain.Message, len(chats))
	for _, r := range rows {
		msg, err := messageFromRow(r)
		if err != nil {
			return nil, readError("list messages", err)
		}
		byChat[r.ChatID] = append(byChat[r.ChatID], msg)
	}

	out := make([]domain.Conversation, len(chats))
	for i, c := range chats {
		out[i] = conversationFromRow(c)
		if msgs := byChat[c.ID]; msgs != nil {
			out[i].Messages = msgs
		}
	}
	return out, nil
}

// AppendMessage inserts a message and then bumps the conversation's
// updated_at. If the bump fails the message is still durably stored: the
// message is returned together with a partial RemoteWriteError.
func (g *Gateway) AppendMessage(ctx context.Context, conversationID, content string, author domain.Author) (*domain.Message, error) {
	if author == nil {
		return nil, writeError("append message", errors.New("message author is required"))
	}

	in := &repository.MessageRow{
		ChatID:  conversationID,
		Content: content,
		Role:    string(author.Role()),
	}
	switch a := author.(type) {
	case domain.UserAuthor:
		in.SenderID = nullString(a.SenderID)
	case domain.AgentAuthor:
		in.AIAgent = nullString(a.Label)
	}

	row, err := g.store.InsertMessage(ctx, in)
	if err != nil {
		return nil, writeError("append message", err)
	}
	msg, err := messageFromRow(*row)
	if err != nil {
		return nil, writeError("append message", err)
	}

	if err := g.store.TouchChat(ctx, conversationID, time.Now()); err != nil {
		log.Warn().Err(err).
			Str("conversation_id", conversationID).
			Str("message_id", msg.ID).
			Msg("message stored but conversation timestamp not bumped")
		return &msg, &RemoteWriteError{Op: "touch conversation", Partial: true, Err: errors.WithStack(err)}
	}
	return &msg, nil
}

// RenameConversation sets a conversation's title. It reports false when no
// conversation matched.
func (g *Gateway) RenameConversation(ctx context.Context, id, title string) (bool, error) {
	ok, err := g.store.UpdateChatTitle(ctx, id, title)
	if err != nil {
		return false, writeError("rename conversation", err)
	}
	return ok, nil
}

// DeleteConversation deletes a conversation. Its messages are removed by the
// store's cascading foreign key.
func (g *Gateway) DeleteConversation(ctx context.Context, id string) (bool, error) {
	ok, err := g.store.DeleteChat(ctx, id)
	if err != nil {
		return false, writeError("delete conversation", err)
	}
	return ok, nil
}

func conversationFromRow(r repository.ChatRow) domain.Conversation {
	return domain.Conversation{
		ID:        r.ID,
		Title:     r.Title,
		OwnerID:   r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Messages:  []domain.Message{},
	}
}

func messagesFromRows(rows []repository.MessageRow) ([]domain.Message, error) {
	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		msg, err := messageFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func messageFromRow(r repository.MessageRow) (domain.Message, error) {
	author, err := domain.NewAuthor(domain.Role(r.Role), r.SenderID.String, r.AIAgent.String)
	if err != nil {
		return domain.Message{}, errors.Wrapf(err, "message %s", r.ID)
	}
	return domain.Message{
		ID:             r.ID,
		ConversationID: r.ChatID,
		Author:         author,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
