package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Errors returned when a frame cannot be queued for a connection.
var (
	ErrBufferFull       = errors.New("send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID      string
	OwnerID string
	Conn    *websocket.Conn
	Send    chan []byte
	mu      sync.Mutex
}

// Hub tracks the open connections of every owner.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// owners maps owner_id to set of connection IDs
	owners map[string]map[string]bool

	closed bool
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		owners:      make(map[string]map[string]bool),
	}
}

// Run blocks until ctx is done and then closes every connection still
// registered.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

// Close unregisters every connection. Later registrations are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	h.owners = make(map[string]map[string]bool)
}

// NewConnection wraps ws for ownerID. It still has to be registered.
func (h *Hub) NewConnection(ws *websocket.Conn, ownerID string) *Connection {
	return &Connection{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Conn:    ws,
		Send:    make(chan []byte, 64),
	}
}

// Register registers a connection with the hub. A closed hub closes the
// connection's send channel right away.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(conn.Send)
		return
	}
	h.connections[conn.ID] = conn
	if h.owners[conn.OwnerID] == nil {
		h.owners[conn.OwnerID] = make(map[string]bool)
	}
	h.owners[conn.OwnerID][conn.ID] = true
	log.Debug().Str("conn_id", conn.ID).Str("owner_id", conn.OwnerID).Msg("connection registered")
}

// Unregister unregisters a connection from the hub and closes its send
// channel. It is safe to call more than once.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if h.owners[conn.OwnerID] != nil {
		delete(h.owners[conn.OwnerID], conn.ID)
		if len(h.owners[conn.OwnerID]) == 0 {
			delete(h.owners, conn.OwnerID)
		}
	}
	close(conn.Send)
	log.Debug().Str("conn_id", conn.ID).Msg("connection unregistered")
}

// Send queues data for conn without blocking.
func (h *Hub) Send(conn *Connection, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrConnectionClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSON queues v for conn as a JSON text frame.
func (h *Hub) SendJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Send(conn, data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasConnections reports whether ownerID has any open connection.
func (h *Hub) HasConnections(ownerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
