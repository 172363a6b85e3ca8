// Package rpc exposes the conversation session over JSON-RPC for internal
// clients such as the chat CLI.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
)

// Server accepts JSON-RPC connections.
type Server struct {
	rpcServer *rpc.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a new RPC server bound to the conversation service.
func NewServer(svc *service.Service) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName("Conversations", handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts RPC connections on ln until Shutdown closes it.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			log.Warn().Err(err).Msg("rpc accept error")
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the Conversations RPC methods.
type Handler struct {
	service *service.Service
}

// OwnerArgs identifies a session.
type OwnerArgs struct {
	OwnerID string `json:"owner_id"`
}

// ConversationArgs identifies a conversation of a session.
type ConversationArgs struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id"`
}

// SendArgs carries a user message.
type SendArgs struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// RenameArgs renames a conversation, or the active one when
// ConversationID is empty.
type RenameArgs struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

// SelectAgentArgs picks the persona of a conversation.
type SelectAgentArgs struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id"`
	Agent          string `json:"agent"`
}

// CreateResponse is returned after a conversation is created.
type CreateResponse struct {
	ConversationID string `json:"conversation_id"`
}

// AckResponse is a generic OK response.
type AckResponse struct {
	OK bool `json:"ok"`
}

// Start logs an owner in and returns the loaded view.
func (h *Handler) Start(req *OwnerArgs, resp *session.View) error {
	if req == nil || strings.TrimSpace(req.OwnerID) == "" {
		return errors.New("owner_id is required")
	}

	view := h.service.StartSession(context.Background(), req.OwnerID)
	if resp != nil {
		*resp = view
	}
	return nil
}

// End logs an owner out.
func (h *Handler) End(req *OwnerArgs, resp *AckResponse) error {
	if req == nil {
		return errors.New("end request is required")
	}
	if err := h.service.EndSession(req.OwnerID); err != nil {
		return err
	}
	if resp != nil {
		resp.OK = true
	}
	return nil
}

// View returns the current session view.
func (h *Handler) View(req *OwnerArgs, resp *session.View) error {
	ctrl, err := h.session(req)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = ctrl.View()
	}
	return nil
}

// Create creates an empty conversation and makes it active.
func (h *Handler) Create(req *OwnerArgs, resp *CreateResponse) error {
	ctrl, err := h.session(req)
	if err != nil {
		return err
	}

	id, ok := ctrl.CreateAndActivate(context.Background())
	if !ok {
		return ctrl.Err()
	}
	if resp != nil {
		resp.ConversationID = id
	}
	return nil
}

// SetActive selects the active conversation.
func (h *Handler) SetActive(req *ConversationArgs, resp *AckResponse) error {
	if req == nil {
		return errors.New("set active request is required")
	}
	ctrl, err := h.session(&OwnerArgs{OwnerID: req.OwnerID})
	if err != nil {
		return err
	}
	if !ctrl.SetActive(req.ConversationID) {
		return fmt.Errorf("%w: %s", session.ErrConversationNotFound, req.ConversationID)
	}
	if resp != nil {
		resp.OK = true
	}
	return nil
}

// Send appends a user message. The reply arrives asynchronously.
func (h *Handler) Send(req *SendArgs, resp *AckResponse) error {
	if req == nil {
		return errors.New("send request is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errors.New("content is required")
	}
	ctrl, err := h.session(&OwnerArgs{OwnerID: req.OwnerID})
	if err != nil {
		return err
	}

	if !ctrl.SendUserMessage(context.Background(), req.ConversationID, req.Content) {
		return ctrl.Err()
	}
	if resp != nil {
		resp.OK = true
	}
	return nil
}

// Rename renames a conversation.
func (h *Handler) Rename(req *RenameArgs, resp *AckResponse) error {
	if req == nil {
		return errors.New("rename request is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title is required")
	}
	ctrl, err := h.session(&OwnerArgs{OwnerID: req.OwnerID})
	if err != nil {
		return err
	}

	var ok bool
	if req.ConversationID == "" {
		ok = ctrl.RenameActive(context.Background(), req.Title)
	} else {
		ok = ctrl.RenameConversation(context.Background(), req.ConversationID, req.Title)
	}
	if !ok {
		return ctrl.Err()
	}
	if resp != nil {
		resp.OK = true
	}
	return nil
}

// Delete deletes a conversation.
func (h *Handler) Delete(req *ConversationArgs, resp *AckResponse) error {
	if req == nil {
		return errors.New("delete request is required")
	}
	ctrl, err := h.session(&OwnerArgs{OwnerID: req.OwnerID})
	if err != nil {
		return err
	}

	if !ctrl.DeleteConversation(context.Background(), req.ConversationID) {
		return ctrl.Err()
	}
	if resp != nil {
		resp.OK = true
	}
	return nil
}

// SelectAgent picks the persona replies in a conversation come from.
func (h *Handler) SelectAgent(req *SelectAgentArgs, resp *AckResponse) error {
	if req == nil {
		return errors.New("select agent request is required")
	}
	ctrl, err := h.session(&OwnerArgs{OwnerID: req.OwnerID})
	if err != nil {
		return err
	}

	if !ctrl.SelectAgent(req.ConversationID, req.Agent) {
		return ctrl.Err()
	}
	if resp != nil {
		resp.OK = true
	}
	return nil
}

func (h *Handler) session(req *OwnerArgs) (*session.Controller, error) {
	if req == nil || req.OwnerID == "" {
		return nil, errors.New("owner_id is required")
	}
	return h.service.Session(req.OwnerID)
}
