package session

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

// Manager holds one Controller per logged-in owner. Login creates the
// controller, logout closes it.
type Manager struct {
	gw   Gateway
	opts Options

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewManager creates a manager whose controllers share gw and opts.
func NewManager(gw Gateway, opts Options) *Manager {
	return &Manager{
		gw:       gw,
		opts:     opts,
		sessions: make(map[string]*Controller),
	}
}

// Start logs ownerID in. A new session is started; an existing one is
// refreshed. The boolean reports whether loading succeeded.
func (m *Manager) Start(ctx context.Context, ownerID string) (*Controller, bool) {
	m.mu.Lock()
	ctrl, exists := m.sessions[ownerID]
	if !exists {
		ctrl = New(m.gw, m.opts)
		m.sessions[ownerID] = ctrl
	}
	m.mu.Unlock()

	if exists {
		if ctrl.State() != domain.SessionStateReady {
			return ctrl, true
		}
		return ctrl, ctrl.Refresh(ctx)
	}
	return ctrl, ctrl.Start(ctx, ownerID)
}

// Get returns the session of ownerID.
func (m *Manager) Get(ownerID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.sessions[ownerID]
	return ctrl, ok
}

// End logs ownerID out. It reports false when no session existed.
func (m *Manager) End(ownerID string) bool {
	m.mu.Lock()
	ctrl, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if !ok {
		return false
	}
	ctrl.Close()
	log.Info().Str("owner_id", ownerID).Msg("session ended")
	return true
}

// Owners lists the owners with a live session.
func (m *Manager) Owners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Close()
	}
}
