package subscriptions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soradyne/clipstream/internal/accounts"
	"github.com/soradyne/clipstream/internal/api"
	"github.com/soradyne/clipstream/internal/apperror"
)

// Handler handles HTTP requests for subscription operations.
type Handler struct {
	service SubscriptionService
}

// NewHandler creates a new subscriptions handler.
func NewHandler(service SubscriptionService) *Handler {
	return &Handler{service: service}
}

// Toggle flips the caller's subscription to a channel
// (POST /api/v1/subscriptions/:channelID/toggle).
func (h *Handler) Toggle(c echo.Context) error {
	userID := accounts.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("authentication required")
	}

	result, err := h.service.Toggle(c.Request().Context(), userID, c.Param("channelID"))
	if err != nil {
		return err
	}

	message := "unsubscribed"
	if result.Subscribed {
		message = "subscribed"
	}
	return api.Respond(c, http.StatusOK, result, message)
}
