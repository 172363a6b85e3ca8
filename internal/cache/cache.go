// Package cache holds the in-process snapshot of a session's conversations.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

// Lister loads every conversation of an owner from the remote store.
type Lister interface {
	ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error)
}

// Cache maps conversation id to conversation, ordered most recent first.
// Mutators only reflect writes the remote store has already accepted.
type Cache struct {
	lister Lister

	mu    sync.RWMutex
	order []string
	byID  map[string]*domain.Conversation
}

// New creates an empty cache backed by lister.
func New(lister Lister) *Cache {
	return &Cache{
		lister: lister,
		byID:   make(map[string]*domain.Conversation),
	}
}

// LoadAll replaces the whole snapshot with the owner's conversations. On
// failure the previous snapshot is kept.
func (c *Cache) LoadAll(ctx context.Context, ownerID string) error {
	convs, err := c.lister.ListConversations(ctx, ownerID)
	if err != nil {
		return err
	}

	order := make([]string, 0, len(convs))
	byID := make(map[string]*domain.Conversation, len(convs))
	for i := range convs {
		conv := convs[i]
		if _, dup := byID[conv.ID]; dup {
			continue
		}
		if conv.Messages == nil {
			conv.Messages = []domain.Message{}
		}
		order = append(order, conv.ID)
		byID[conv.ID] = &conv
	}

	c.mu.Lock()
	c.order = order
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// Reset empties the snapshot.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.byID = make(map[string]*domain.Conversation)
}

// ApplyCreate puts conv at the front of the snapshot. A conversation already
// present with the same id is replaced rather than duplicated.
func (c *Cache) ApplyCreate(conv domain.Conversation) {
	if conv.Messages == nil {
		conv.Messages = []domain.Message{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[conv.ID]; ok {
		c.removeLocked(conv.ID)
	}
	c.order = append([]string{conv.ID}, c.order...)
	c.byID[conv.ID] = &conv
}

// ApplyAppend appends msg to its conversation and refreshes UpdatedAt. It
// reports false, and logs a consistency warning, when the conversation is not
// in the snapshot.
func (c *Cache) ApplyAppend(conversationID string, msg domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byID[conversationID]
	if !ok {
		log.Warn().
			Str("conversation_id", conversationID).
			Str("message_id", msg.ID).
			Msg("append for conversation missing from cache")
		return false
	}
	if conv.HasMessage(msg.ID) {
		return true
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now().UTC()
	return true
}

// ApplyRename replaces the title of a cached conversation.
func (c *Cache) ApplyRename(conversationID, title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byID[conversationID]
	if !ok {
		return false
	}
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()
	return true
}

// ApplyDelete removes a conversation from the snapshot. Clearing the active
// pointer is the caller's job.
func (c *Cache) ApplyDelete(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[conversationID]; !ok {
		return false
	}
	c.removeLocked(conversationID)
	return true
}

// Merge folds a freshly fetched copy of a conversation into the snapshot.
// Messages are matched by id: cached ones are never dropped or duplicated and
// new ones are slotted in by creation time. It reports false when the
// conversation is not cached.
func (c *Cache) Merge(fetched domain.Conversation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byID[fetched.ID]
	if !ok {
		return false
	}

	conv.Title = fetched.Title
	if fetched.UpdatedAt.After(conv.UpdatedAt) {
		conv.UpdatedAt = fetched.UpdatedAt
	}

	added := false
	for _, m := range fetched.Messages {
		if conv.HasMessage(m.ID) {
			continue
		}
		conv.Messages = append(conv.Messages, m)
		added = true
	}
	if added {
		sort.SliceStable(conv.Messages, func(i, j int) bool {
			return conv.Messages[i].CreatedAt.Before(conv.Messages[j].CreatedAt)
		})
	}
	return true
}

// Has reports whether the conversation is cached.
func (c *Cache) Has(conversationID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[conversationID]
	return ok
}

// Get returns a copy of a cached conversation.
func (c *Cache) Get(conversationID string) (domain.Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conv, ok := c.byID[conversationID]
	if !ok {
		return domain.Conversation{}, false
	}
	return *clone.Clone(conv).(*domain.Conversation), true
}

// Len returns the number of cached conversations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Snapshot returns deep copies of every cached conversation, most recent first.
func (c *Cache) Snapshot() []domain.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Conversation, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *clone.Clone(c.byID[id]).(*domain.Conversation))
	}
	return out
}

func (c *Cache) removeLocked(id string) {
	delete(c.byID, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
