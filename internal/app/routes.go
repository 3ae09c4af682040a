package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soradyne/clipstream/internal/accounts"
	"github.com/soradyne/clipstream/internal/media"
	"github.com/soradyne/clipstream/internal/subscriptions"
	"github.com/soradyne/clipstream/internal/token"
)

// RegisterRoutes wires the feature packages together and mounts their
// routes under /api/v1. This is the single place where all routes are
// aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")

	// Shared services.
	uploads := media.NewService(a.Storage, a.Config.Upload.MaxSize)

	// Accounts: the user repository doubles as the token issuer's
	// identity store.
	userRepo := accounts.NewUserRepository(a.DB)
	issuer := token.NewIssuer(userRepo, a.Config.Auth)
	accountService := accounts.NewAccountService(userRepo, issuer, uploads)
	accountHandler := accounts.NewHandler(accountService, a.Config.Auth)
	accounts.RegisterRoutes(v1, accountHandler, issuer, a.Redis)

	// Subscriptions.
	subRepo := subscriptions.NewSubscriptionRepository(a.DB)
	subService := subscriptions.NewSubscriptionService(subRepo)
	subHandler := subscriptions.NewHandler(subService)
	subscriptions.RegisterRoutes(v1, subHandler, issuer)
}
