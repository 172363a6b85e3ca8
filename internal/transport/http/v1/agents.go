package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAgents lists the AI personas.
// GET /v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	ctx := c.Request().Context()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": h.service.ListAgents(ctx),
	})
}

// GetAgent gets a persona by id or name.
// GET /v1/agents/:agent_id
func (h *Handler) GetAgent(c echo.Context) error {
	ctx := c.Request().Context()
	agentID := c.Param("agent_id")

	agent := h.service.GetAgent(ctx, agentID)
	if agent == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}

	return c.JSON(http.StatusOK, agent)
}
