package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
)

// SetActiveRequest selects the active conversation.
type SetActiveRequest struct {
	ConversationID string `json:"conversation_id"`
}

// RenameRequest renames a conversation.
type RenameRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest sends a user message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SelectAgentRequest picks the persona of a conversation.
type SelectAgentRequest struct {
	Agent string `json:"agent"`
}

// StartSession logs an owner in and loads their conversations.
// POST /v1/sessions/:owner_id
func (h *Handler) StartSession(c echo.Context) error {
	ctx := c.Request().Context()

	view := h.service.StartSession(ctx, c.Param("owner_id"))
	return c.JSON(http.StatusOK, view)
}

// GetSession returns the session view.
// GET /v1/sessions/:owner_id
func (h *Handler) GetSession(c echo.Context) error {
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// EndSession logs an owner out.
// DELETE /v1/sessions/:owner_id
func (h *Handler) EndSession(c echo.Context) error {
	if err := h.service.EndSession(c.Param("owner_id")); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// RefreshSession reloads the owner's conversations from the store.
// POST /v1/sessions/:owner_id/refresh
func (h *Handler) RefreshSession(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	if !ctrl.Refresh(ctx) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// CreateConversation creates an empty conversation and makes it active.
// POST /v1/sessions/:owner_id/conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	id, ok := ctrl.CreateAndActivate(ctx)
	if !ok {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"conversation_id": id,
		"session":         ctrl.View(),
	})
}

// SetActive selects the active conversation without touching the store.
// PUT /v1/sessions/:owner_id/active
func (h *Handler) SetActive(c echo.Context) error {
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ConversationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conversation_id is required"})
	}

	if !ctrl.SetActive(req.ConversationID) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// RenameActive renames the active conversation.
// PATCH /v1/sessions/:owner_id/active
func (h *Handler) RenameActive(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	var req RenameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	if !ctrl.RenameActive(ctx, req.Title) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// RenameConversation renames a conversation by id.
// PATCH /v1/sessions/:owner_id/conversations/:conversation_id
func (h *Handler) RenameConversation(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	var req RenameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	if !ctrl.RenameConversation(ctx, c.Param("conversation_id"), req.Title) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// DeleteConversation deletes a conversation and its messages.
// DELETE /v1/sessions/:owner_id/conversations/:conversation_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	if !ctrl.DeleteConversation(ctx, c.Param("conversation_id")) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// SendMessage appends a user message; the assistant reply follows
// asynchronously and shows up in later views.
// POST /v1/sessions/:owner_id/conversations/:conversation_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	if !ctrl.SendUserMessage(ctx, c.Param("conversation_id"), req.Content) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusAccepted, ctrl.View())
}

// ReconcileConversation re-reads one conversation from the store.
// POST /v1/sessions/:owner_id/conversations/:conversation_id/reconcile
func (h *Handler) ReconcileConversation(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	if !ctrl.Reconcile(ctx, c.Param("conversation_id")) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// SelectAgent picks the persona replies in a conversation come from.
// PUT /v1/sessions/:owner_id/conversations/:conversation_id/agent
func (h *Handler) SelectAgent(c echo.Context) error {
	ctrl, err := h.service.Session(c.Param("owner_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	var req SelectAgentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Agent == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "agent is required"})
	}

	if !ctrl.SelectAgent(c.Param("conversation_id"), req.Agent) {
		return sessionFailure(c, ctrl)
	}
	return c.JSON(http.StatusOK, ctrl.View())
}

// sessionFailure reports the error a failed session operation recorded.
func sessionFailure(c echo.Context, ctrl *session.Controller) error {
	err := ctrl.Err()
	if err == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "operation failed"})
	}
	return c.JSON(statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrMessageRejected), errors.Is(err, session.ErrUnknownAgent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoActiveConversation),
		errors.Is(err, session.ErrNotReady),
		errors.Is(err, session.ErrNoOwner):
		return http.StatusConflict
	case gateway.IsRead(err), gateway.IsWrite(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
