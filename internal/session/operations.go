package session

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/adapter/events"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
	"github.com/mr-gyb/1.9-Updated-Backend/policy"
)

// CreateAndActivate creates an empty conversation, puts it at the front of
// the snapshot and makes it active. It returns ("", false) and records the
// error on failure.
func (c *Controller) CreateAndActivate(ctx context.Context) (string, bool) {
	ownerID, err := c.readyOwner()
	if err != nil {
		c.fail("failed to create conversation", err)
		return "", false
	}
	if strings.TrimSpace(ownerID) == "" {
		c.fail("failed to create conversation", ErrNoOwner)
		return "", false
	}

	conv, err := c.gw.CreateConversation(ctx, ownerID, "")
	if err != nil {
		c.fail("failed to create conversation", err)
		return "", false
	}
	c.cache.ApplyCreate(*conv)

	c.mu.Lock()
	c.activeID = conv.ID
	c.lastErr = nil
	c.mu.Unlock()

	c.publish(ctx, events.Event{
		Type:           events.TypeConversationCreated,
		ConversationID: conv.ID,
		Title:          conv.Title,
	})
	c.notify()
	return conv.ID, true
}

// SendUserMessage appends text as a user message and schedules one assistant
// reply. Whitespace-only text is ignored without touching the store.
func (c *Controller) SendUserMessage(ctx context.Context, conversationID, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	ownerID, err := c.readyOwner()
	if err != nil {
		c.fail("failed to send message", err)
		return false
	}
	if !c.cache.Has(conversationID) {
		c.fail("failed to send message", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID))
		return false
	}

	agent := c.AgentFor(conversationID)
	if !c.allowed(ctx, ownerID, conversationID, agent, text) {
		return false
	}

	lock := c.lockFor(conversationID)
	lock.Lock()
	if !c.cache.Has(conversationID) {
		lock.Unlock()
		c.fail("failed to send message", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID))
		return false
	}
	msg, err := c.gw.AppendMessage(ctx, conversationID, text, domain.UserAuthor{SenderID: ownerID})
	if msg == nil {
		lock.Unlock()
		c.fail("failed to send message", err)
		return false
	}
	if gateway.IsPartial(err) {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("user message stored with stale conversation timestamp")
	}
	c.cache.ApplyAppend(conversationID, *msg)
	lock.Unlock()

	c.clearError()
	c.publishMessage(ctx, *msg)
	c.notify()

	c.scheduleReply(conversationID, text, agent)
	return true
}

// allowed evaluates the send policy. A blocked or unevaluable message is
// recorded as an error.
func (c *Controller) allowed(ctx context.Context, ownerID, conversationID, agent, text string) bool {
	if c.opts.Policy == nil {
		return true
	}

	decision, reason, err := c.opts.Policy.Evaluate(ctx, policy.SendInput{
		OwnerID:        ownerID,
		ConversationID: conversationID,
		Agent:          agent,
		Content:        text,
		ContentLength:  utf8.RuneCountInString(text),
	})
	if err != nil {
		c.fail("failed to evaluate send policy", err)
		return false
	}
	if decision == policy.DecisionBlock {
		if reason == "" {
			reason = "blocked by policy"
		}
		c.fail("failed to send message", fmt.Errorf("%w: %s", ErrMessageRejected, reason))
		return false
	}
	return true
}

// RenameActive renames the active conversation.
func (c *Controller) RenameActive(ctx context.Context, title string) bool {
	active := c.ActiveID()
	if active == "" {
		c.fail("failed to rename conversation", ErrNoActiveConversation)
		return false
	}
	return c.RenameConversation(ctx, active, title)
}

// RenameConversation sets the title of a cached conversation. A blank title
// is ignored; a title equal to the current one succeeds without a store call.
func (c *Controller) RenameConversation(ctx context.Context, conversationID, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	if _, err := c.readyOwner(); err != nil {
		c.fail("failed to rename conversation", err)
		return false
	}

	lock := c.lockFor(conversationID)
	lock.Lock()
	conv, ok := c.cache.Get(conversationID)
	if !ok {
		lock.Unlock()
		c.fail("failed to rename conversation", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID))
		return false
	}
	if conv.Title == title {
		lock.Unlock()
		return true
	}

	found, err := c.gw.RenameConversation(ctx, conversationID, title)
	if err != nil {
		lock.Unlock()
		c.fail("failed to rename conversation", err)
		return false
	}
	if !found {
		lock.Unlock()
		c.fail("failed to rename conversation", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID))
		return false
	}
	c.cache.ApplyRename(conversationID, title)
	lock.Unlock()

	c.clearError()
	c.publish(ctx, events.Event{
		Type:           events.TypeConversationRenamed,
		ConversationID: conversationID,
		Title:          title,
	})
	c.notify()
	return true
}

// DeleteConversation deletes a conversation and its messages, cancels any
// pending reply for it and clears the active pointer if it pointed there.
func (c *Controller) DeleteConversation(ctx context.Context, conversationID string) bool {
	if _, err := c.readyOwner(); err != nil {
		c.fail("failed to delete conversation", err)
		return false
	}

	lock := c.lockFor(conversationID)
	lock.Lock()
	if !c.cache.Has(conversationID) {
		lock.Unlock()
		c.fail("failed to delete conversation", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID))
		return false
	}
	if _, err := c.gw.DeleteConversation(ctx, conversationID); err != nil {
		lock.Unlock()
		c.fail("failed to delete conversation", err)
		return false
	}
	c.cache.ApplyDelete(conversationID)
	lock.Unlock()

	c.forget(conversationID)
	c.clearError()
	c.publish(ctx, events.Event{
		Type:           events.TypeConversationDeleted,
		ConversationID: conversationID,
	})
	c.notify()
	return true
}

// forget drops every piece of session state tied to a deleted conversation.
func (c *Controller) forget(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == conversationID {
		c.activeID = ""
	}
	delete(c.selected, conversationID)
	if scope, ok := c.replies[conversationID]; ok {
		scope.cancel()
		delete(c.replies, conversationID)
	}

	c.locksMu.Lock()
	delete(c.locks, conversationID)
	c.locksMu.Unlock()
}

// SetActive makes a cached conversation active. It never calls the store.
func (c *Controller) SetActive(conversationID string) bool {
	if !c.cache.Has(conversationID) {
		return false
	}
	c.mu.Lock()
	c.activeID = conversationID
	c.mu.Unlock()
	c.notify()
	return true
}

// SelectAgent picks the persona future replies in conversationID come from.
// label may be an agent name or id.
func (c *Controller) SelectAgent(conversationID, label string) bool {
	if !c.cache.Has(conversationID) {
		c.fail("failed to select agent", fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID))
		return false
	}
	agent, ok := c.opts.Agents.Lookup(label)
	if !ok {
		c.fail("failed to select agent", fmt.Errorf("%w: %q", ErrUnknownAgent, label))
		return false
	}

	c.mu.Lock()
	c.selected[conversationID] = agent.Name
	c.mu.Unlock()
	c.notify()
	return true
}

// Refresh reloads every conversation of the owner. On failure the current
// snapshot is kept.
func (c *Controller) Refresh(ctx context.Context) bool {
	ownerID, err := c.readyOwner()
	if err != nil {
		c.fail("failed to refresh conversations", err)
		return false
	}
	if strings.TrimSpace(ownerID) == "" {
		return true
	}

	loadCtx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
	defer cancel()
	if err := c.cache.LoadAll(loadCtx, ownerID); err != nil {
		c.fail("failed to refresh conversations", err)
		return false
	}

	c.mu.Lock()
	if c.activeID != "" && !c.cache.Has(c.activeID) {
		c.activeID = ""
	}
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()
	return true
}

// Reconcile re-reads one conversation and merges it into the cache by
// message id. A conversation the store no longer has is dropped locally.
// The fetch and the merge run under the conversation's lock so a concurrent
// rename cannot be overwritten by the title read before it.
func (c *Controller) Reconcile(ctx context.Context, conversationID string) bool {
	lock := c.lockFor(conversationID)
	lock.Lock()
	fetched, err := c.gw.FetchConversation(ctx, conversationID)
	if err != nil {
		lock.Unlock()
		if ctx.Err() == nil {
			c.fail("failed to reconcile conversation", err)
		}
		return false
	}

	if fetched == nil {
		removed := c.cache.ApplyDelete(conversationID)
		lock.Unlock()
		if removed {
			c.forget(conversationID)
			c.notify()
		}
		return true
	}

	merged := c.cache.Merge(*fetched)
	lock.Unlock()
	if merged {
		c.notify()
	}
	return true
}

func (c *Controller) publishMessage(ctx context.Context, msg domain.Message) {
	c.publish(ctx, events.Event{
		Type:           events.TypeMessageAppended,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Role:           string(msg.Role()),
		AgentLabel:     msg.AgentLabel(),
		Content:        msg.Content,
	})
}
