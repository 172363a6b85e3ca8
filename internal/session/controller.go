// Package session implements the per-user conversation session: which
// conversation is active, and the create / send / rename / delete flows that
// keep the cache in step with the remote store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/adapter/events"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/adapter/reply"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/agents"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/cache"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

// Gateway is the remote store surface the controller drives.
type Gateway interface {
	CreateConversation(ctx context.Context, ownerID, title string) (*domain.Conversation, error)
	FetchConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, content string, author domain.Author) (*domain.Message, error)
	RenameConversation(ctx context.Context, id, title string) (bool, error)
	DeleteConversation(ctx context.Context, id string) (bool, error)
}

// Policy decides whether a user message may be sent. It returns "allow" or
// "block" and an optional reason.
type Policy interface {
	Evaluate(ctx context.Context, input interface{}) (string, string, error)
}

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	ReplyDelay   time.Duration
	LoadTimeout  time.Duration
	DefaultAgent string

	Responder reply.Responder
	Policy    Policy
	Publisher events.Publisher
	Agents    *agents.Catalog
}

const defaultLoadTimeout = 10 * time.Second

func (o Options) withDefaults() Options {
	if o.ReplyDelay < 0 {
		o.ReplyDelay = 0
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = defaultLoadTimeout
	}
	if o.DefaultAgent == "" {
		o.DefaultAgent = agents.DefaultLabel
	}
	if o.Responder == nil {
		o.Responder = reply.NewEchoResponder()
	}
	if o.Publisher == nil {
		o.Publisher = events.NoopPublisher{}
	}
	if o.Agents == nil {
		o.Agents = agents.NewCatalog()
	}
	return o
}

// Errors recorded as the session's last error. Store failures are recorded
// as the gateway's RemoteReadError / RemoteWriteError instead.
var (
	ErrNotReady             = errors.New("session is not ready")
	ErrNoOwner              = errors.New("session has no owner")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrUnknownAgent         = errors.New("unknown agent")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageRejected      = errors.New("message rejected")
)

// View is the read model handed to the UI. Conversations are deep copies.
type View struct {
	OwnerID              string                `json:"owner_id"`
	State                domain.SessionState   `json:"state"`
	Loading              bool                  `json:"loading"`
	ActiveConversationID string                `json:"active_conversation_id,omitempty"`
	Conversations        []domain.Conversation `json:"conversations"`
	Agents               map[string]string     `json:"agents"`
	LastError            string                `json:"last_error,omitempty"`
}

// Conversation returns the conversation with the given id from the view.
func (v View) Conversation(id string) (domain.Conversation, bool) {
	for _, c := range v.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Conversation{}, false
}

type replyScope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller owns the conversation state of one user session. All methods are
// safe for concurrent use; mutations of a single conversation are serialized.
type Controller struct {
	gw    Gateway
	cache *cache.Cache
	opts  Options

	mu       sync.RWMutex
	ownerID  string
	state    domain.SessionState
	activeID string
	lastErr  error
	selected map[string]string
	closed   bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	root       context.Context
	rootCancel context.CancelFunc
	replies    map[string]replyScope
	wg         sync.WaitGroup

	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     map[int]chan View
	nextSub  int
}

// New creates an uninitialized controller.
func New(gw Gateway, opts Options) *Controller {
	root, cancel := context.WithCancel(context.Background())
	return &Controller{
		gw:         gw,
		cache:      cache.New(gw),
		opts:       opts.withDefaults(),
		state:      domain.SessionStateUninitialized,
		selected:   make(map[string]string),
		locks:      make(map[string]*sync.Mutex),
		root:       root,
		rootCancel: cancel,
		replies:    make(map[string]replyScope),
		subs:       make(map[int]chan View),
	}
}

// Start loads the owner's conversations and moves the session to Ready.
// An empty owner yields an empty Ready session. A load failure, including
// hitting LoadTimeout, still ends in Ready with LastError set and false
// returned.
func (c *Controller) Start(ctx context.Context, ownerID string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.ownerID = ownerID
	c.state = domain.SessionStateLoading
	c.activeID = ""
	c.lastErr = nil
	c.selected = make(map[string]string)
	for id, scope := range c.replies {
		scope.cancel()
		delete(c.replies, id)
	}
	c.mu.Unlock()

	c.cache.Reset()
	c.notify()

	ok := true
	if strings.TrimSpace(ownerID) != "" {
		loadCtx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
		err := c.cache.LoadAll(loadCtx, ownerID)
		cancel()
		if err != nil {
			c.fail("failed to load conversations", err)
			ok = false
		}
	}

	c.mu.Lock()
	c.state = domain.SessionStateReady
	c.mu.Unlock()

	log.Info().Str("owner_id", ownerID).Int("conversations", c.cache.Len()).Msg("session started")
	c.notify()
	return ok
}

// Close ends the session: pending replies are cancelled and awaited, the
// cache is emptied and every subscription channel is closed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.rootCancel()
	c.wg.Wait()

	c.mu.Lock()
	c.state = domain.SessionStateUninitialized
	c.activeID = ""
	c.replies = make(map[string]replyScope)
	c.mu.Unlock()
	c.cache.Reset()

	c.subMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

// OwnerID returns the owner the session was started for.
func (c *Controller) OwnerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ownerID
}

// State returns the lifecycle state.
func (c *Controller) State() domain.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ActiveID returns the active conversation id, or "" when none is active.
func (c *Controller) ActiveID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID
}

// LastError returns the message of the most recent recorded failure, or "".
func (c *Controller) LastError() string {
	if err := c.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Err returns the most recent recorded failure. It wraps one of the
// package errors or a gateway error.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// View returns the current read model.
func (c *Controller) View() View {
	c.mu.RLock()
	v := View{
		OwnerID:              c.ownerID,
		State:                c.state,
		Loading:              c.state == domain.SessionStateLoading,
		ActiveConversationID: c.activeID,
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	selected := make(map[string]string, len(c.selected))
	for id, label := range c.selected {
		selected[id] = label
	}
	c.mu.RUnlock()

	v.Conversations = c.cache.Snapshot()
	v.Agents = make(map[string]string, len(v.Conversations))
	for i := range v.Conversations {
		conv := &v.Conversations[i]
		v.Agents[conv.ID] = c.resolveLabel(selected[conv.ID], conv)
	}
	return v
}

// Subscribe returns a channel that receives the latest View after every
// state change. Slow readers only ever see the newest view. The returned
// function cancels the subscription. On a closed controller the channel
// holds the final view and is already closed.
func (c *Controller) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	ch <- c.View()

	c.subMu.Lock()
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			if existing, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(existing)
			}
		})
	}
}

// AgentFor returns the agent replies in conversationID are attributed to:
// the selected agent, else the author of the last assistant message, else
// the default agent.
func (c *Controller) AgentFor(conversationID string) string {
	c.mu.RLock()
	selected := c.selected[conversationID]
	c.mu.RUnlock()
	if selected != "" {
		return selected
	}

	conv, ok := c.cache.Get(conversationID)
	if !ok {
		return c.opts.DefaultAgent
	}
	return c.resolveLabel("", &conv)
}

func (c *Controller) resolveLabel(selected string, conv *domain.Conversation) string {
	if selected != "" {
		return selected
	}
	if label := conv.LastAgentLabel(); label != "" {
		return label
	}
	return c.opts.DefaultAgent
}

// readyOwner returns the owner when the session is Ready.
func (c *Controller) readyOwner() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.state != domain.SessionStateReady {
		return "", ErrNotReady
	}
	return c.ownerID, nil
}

func (c *Controller) lockFor(conversationID string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conversationID] = l
	}
	return l
}

// fail records err as the session's last error.
func (c *Controller) fail(op string, err error) {
	c.mu.Lock()
	c.lastErr = fmt.Errorf("%s: %w", op, err)
	owner := c.ownerID
	c.mu.Unlock()

	log.Warn().Err(err).Str("owner_id", owner).Msg(op)
	c.notify()
}

func (c *Controller) clearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.subMu.Lock()
	empty := len(c.subs) == 0
	c.subMu.Unlock()
	if empty {
		return
	}

	v := c.View()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
			// Drop the stale view so the newest one fits.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (c *Controller) publish(ctx context.Context, ev events.Event) {
	ev.OwnerID = c.OwnerID()
	ev.At = time.Now().UTC()
	if err := c.opts.Publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("conversation_id", ev.ConversationID).
			Str("type", ev.Type).
			Msg("failed to publish conversation event")
	}
}
