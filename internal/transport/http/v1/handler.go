// Package v1 provides the versioned HTTP handlers of the conversation backend.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session lifecycle (login / logout)
	e.POST("/v1/sessions/:owner_id", h.StartSession)
	e.GET("/v1/sessions/:owner_id", h.GetSession)
	e.DELETE("/v1/sessions/:owner_id", h.EndSession)
	e.POST("/v1/sessions/:owner_id/refresh", h.RefreshSession)

	// Conversations
	e.POST("/v1/sessions/:owner_id/conversations", h.CreateConversation)
	e.PUT("/v1/sessions/:owner_id/active", h.SetActive)
	e.PATCH("/v1/sessions/:owner_id/active", h.RenameActive)
	e.PATCH("/v1/sessions/:owner_id/conversations/:conversation_id", h.RenameConversation)
	e.DELETE("/v1/sessions/:owner_id/conversations/:conversation_id", h.DeleteConversation)
	e.POST("/v1/sessions/:owner_id/conversations/:conversation_id/messages", h.SendMessage)
	e.POST("/v1/sessions/:owner_id/conversations/:conversation_id/reconcile", h.ReconcileConversation)
	e.PUT("/v1/sessions/:owner_id/conversations/:conversation_id/agent", h.SelectAgent)

	// Agent catalog
	e.GET("/v1/agents", h.ListAgents)
	e.GET("/v1/agents/:agent_id", h.GetAgent)

	// Profiles
	e.GET("/v1/profiles/:user_id", h.GetProfile)
	e.PUT("/v1/profiles/:user_id", h.UpdateProfile)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
