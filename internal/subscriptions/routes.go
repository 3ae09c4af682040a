package subscriptions

import (
	"github.com/labstack/echo/v4"

	"github.com/soradyne/clipstream/internal/accounts"
)

// RegisterRoutes sets up subscription routes under /api/v1/subscriptions.
// All of them require a valid access token.
func RegisterRoutes(g *echo.Group, h *Handler, verifier accounts.AccessVerifier) {
	subs := g.Group("/subscriptions", accounts.RequireAuth(verifier))
	subs.POST("/:channelID/toggle", h.Toggle)
}
