package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/adapter/reply"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
)

// scheduleReply starts the deferred assistant reply to text. The task runs
// under the conversation's reply scope, which is cancelled when the
// conversation is deleted or the session closes.
func (c *Controller) scheduleReply(conversationID, text, agent string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	scope, ok := c.replies[conversationID]
	if !ok {
		ctx, cancel := context.WithCancel(c.root)
		scope = replyScope{ctx: ctx, cancel: cancel}
		c.replies[conversationID] = scope
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.runReply(scope.ctx, conversationID, text, agent)
	}()
}

func (c *Controller) runReply(ctx context.Context, conversationID, text, agent string) {
	logger := log.With().Str("conversation_id", conversationID).Str("agent", agent).Logger()

	timer := time.NewTimer(c.opts.ReplyDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		logger.Debug().Msg("pending reply cancelled")
		return
	case <-timer.C:
	}

	conv, ok := c.cache.Get(conversationID)
	if !ok {
		logger.Debug().Msg("conversation gone before reply")
		return
	}

	persona, found := c.opts.Agents.Lookup(agent)
	if !found {
		persona = domain.Agent{Name: agent}
	}
	content, err := c.opts.Responder.Respond(ctx, reply.Request{
		Agent:   persona,
		Text:    text,
		History: conv.Messages,
	})
	if err != nil {
		if ctx.Err() == nil {
			c.fail("failed to generate reply", err)
		}
		return
	}

	lock := c.lockFor(conversationID)
	lock.Lock()
	if ctx.Err() != nil || !c.cache.Has(conversationID) {
		lock.Unlock()
		logger.Debug().Msg("conversation gone before reply")
		return
	}
	msg, err := c.gw.AppendMessage(ctx, conversationID, content, domain.AgentAuthor{Label: agent})
	if msg == nil {
		lock.Unlock()
		if ctx.Err() == nil {
			c.fail("failed to append reply", err)
		}
		return
	}
	if gateway.IsPartial(err) {
		logger.Warn().Err(err).Msg("reply stored with stale conversation timestamp")
	}
	c.cache.ApplyAppend(conversationID, *msg)
	lock.Unlock()

	c.publishMessage(ctx, *msg)
	c.notify()

	c.Reconcile(ctx, conversationID)
}
