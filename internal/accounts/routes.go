package accounts

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/soradyne/clipstream/internal/middleware"
)

// RegisterRoutes sets up all account routes under /api/v1/users. The auth
// middleware is exported separately for other packages to use on their
// route groups.
//
// The credential endpoints are rate-limited to slow brute-force and
// credential stuffing: 10 attempts per IP per minute for login and
// refresh, 5 for register.
func RegisterRoutes(g *echo.Group, h *Handler, verifier AccessVerifier, rdb *redis.Client) {
	users := g.Group("/users")

	// Public routes -- no token required.
	users.POST("/register", h.Register, middleware.RateLimit(rdb, "register", 5, time.Minute))
	users.POST("/login", h.Login, middleware.RateLimit(rdb, "login", 10, time.Minute))
	users.POST("/refresh-token", h.Refresh, middleware.RateLimit(rdb, "refresh", 10, time.Minute))

	// Everything below requires a valid access token.
	auth := users.Group("", RequireAuth(verifier))
	auth.POST("/logout", h.Logout)
	auth.POST("/change-password", h.ChangePassword)
	auth.GET("/current-user", h.CurrentUser)
	auth.PATCH("/update-account", h.UpdateAccount)
	auth.PATCH("/avatar", h.UpdateAvatar)
	auth.PATCH("/cover-image", h.UpdateCoverImage)
	auth.GET("/c/:username", h.Channel)
	auth.GET("/history", h.History)
	auth.POST("/history/:videoID", h.RecordWatch)
}
