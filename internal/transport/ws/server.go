// Package ws streams session views to UI clients over WebSocket and accepts
// conversation commands on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
)

// Options tunes connection timeouts.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	CommandTimeout time.Duration
}

// DefaultOptions returns the timeouts used by the server binary.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		CommandTimeout: 30 * time.Second,
	}
}

// Server handles WebSocket connections.
type Server struct {
	service  *service.Service
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(svc *service.Service, h *Hub, opts Options) *Server {
	return &Server{
		service: svc,
		hub:     h,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket attaches a connection to the owner's live session.
// GET /v1/sessions/:owner_id/ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	ownerID := c.Param("owner_id")
	ctrl, err := s.service.Session(ownerID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("failed to upgrade websocket")
		return err
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)

	conn := s.hub.NewConnection(ws, ownerID)
	s.hub.Register(conn)

	views, cancel := ctrl.Subscribe()

	go s.writePump(conn)
	go s.forward(conn, ctrl, views)
	go s.readPump(conn, ctrl, cancel)

	return nil
}

// forward pushes every view to the client. When the session closes the
// client is told and the connection is dropped.
func (s *Server) forward(conn *Connection, ctrl *session.Controller, views <-chan session.View) {
	for v := range views {
		msg := ViewMessage{
			BaseMessage: BaseMessage{Type: TypeView, Ts: time.Now().UnixMilli()},
			View:        v,
		}
		if err := s.hub.SendJSON(conn, msg); err != nil && err != ErrConnectionClosed {
			log.Warn().Err(err).Str("conn_id", conn.ID).Msg("dropping view")
		}
	}

	if ctrl.State() == domain.SessionStateUninitialized {
		s.hub.SendJSON(conn, BaseMessage{Type: TypeSessionEnded, Ts: time.Now().UnixMilli()})
		s.hub.Unregister(conn)
	}
}

// readPump reads commands from the WebSocket connection.
func (s *Server) readPump(conn *Connection, ctrl *session.Controller, cancel func()) {
	defer func() {
		s.hub.Unregister(conn)
		cancel()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", conn.ID).Msg("websocket error")
			}
			return
		}

		s.handleMessage(conn, ctrl, message)
	}
}

// writePump writes queued frames to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage runs one client command against the session and acks it.
// Commands of one connection run in order.
func (s *Server) handleMessage(conn *Connection, ctrl *session.Controller, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", "invalid JSON message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommandTimeout)
	defer cancel()

	ack := AckMessage{
		BaseMessage: BaseMessage{Type: TypeAck, RequestID: msg.RequestID},
	}
	// noop marks input the session ignores without recording an error, so
	// the ack must not echo an older failure.
	noop := false
	switch msg.Type {
	case TypeCreate:
		ack.ConversationID, ack.OK = ctrl.CreateAndActivate(ctx)
	case TypeSend:
		ack.ConversationID = msg.ConversationID
		if strings.TrimSpace(msg.Content) == "" {
			noop = true
			break
		}
		ack.OK = ctrl.SendUserMessage(ctx, msg.ConversationID, msg.Content)
	case TypeSetActive:
		ack.ConversationID = msg.ConversationID
		ack.OK = ctrl.SetActive(msg.ConversationID)
		noop = !ack.OK
	case TypeRename:
		if strings.TrimSpace(msg.Title) == "" {
			ack.ConversationID = msg.ConversationID
			noop = true
		} else if msg.ConversationID == "" {
			ack.OK = ctrl.RenameActive(ctx, msg.Title)
		} else {
			ack.ConversationID = msg.ConversationID
			ack.OK = ctrl.RenameConversation(ctx, msg.ConversationID, msg.Title)
		}
	case TypeDelete:
		ack.ConversationID = msg.ConversationID
		ack.OK = ctrl.DeleteConversation(ctx, msg.ConversationID)
	case TypeSelectAgent:
		ack.ConversationID = msg.ConversationID
		ack.OK = ctrl.SelectAgent(msg.ConversationID, msg.Agent)
	case TypeRefresh:
		ack.OK = ctrl.Refresh(ctx)
	case TypeReconcile:
		ack.ConversationID = msg.ConversationID
		ack.OK = ctrl.Reconcile(ctx, msg.ConversationID)
	default:
		s.sendError(conn, msg.RequestID, "unknown message type: "+msg.Type)
		return
	}

	if !ack.OK && !noop {
		ack.Error = ctrl.LastError()
	}
	ack.Ts = time.Now().UnixMilli()
	if err := s.hub.SendJSON(conn, ack); err != nil {
		log.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to send ack")
	}
}

func (s *Server) sendError(conn *Connection, requestID, message string) {
	errMsg := ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
		},
		Code:    ErrorCodeInvalidMessage,
		Message: message,
	}
	s.hub.SendJSON(conn, errMsg)
}
