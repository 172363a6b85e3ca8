package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
)

// GetProfile returns a user's profile, creating the default one on first use.
// GET /v1/profiles/:user_id
func (h *Handler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	profile, err := h.service.GetProfile(ctx, c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies a partial profile update.
// PUT /v1/profiles/:user_id
func (h *Handler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	profile, err := h.service.UpdateProfile(ctx, c.Param("user_id"), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProfile) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}
