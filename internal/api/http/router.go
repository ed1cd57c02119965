package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/beanbrew/queueboard/internal/api/http/handlers"
	"github.com/beanbrew/queueboard/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Board   *handlers.BoardHandler
	Orders  *handlers.OrdersHandler
	Metrics *handlers.MetricsHandler
	// OperatorKeyHash guards the order mutation routes when set.
	OperatorKeyHash string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Get)

	api := app.Group("/api")
	api.Get("/session", cfg.Session.Get)
	api.Post("/session/login", cfg.Session.Login)
	api.Post("/session/signup", cfg.Session.Signup)
	api.Post("/session/logout", cfg.Session.Logout)

	api.Get("/board", cfg.Board.Get)
	api.Post("/board/refresh", cfg.Board.Refresh)
	api.Get("/menu", cfg.Orders.Menu)

	guarded := auth.RequireOperatorKey(cfg.OperatorKeyHash)
	api.Post("/orders", guarded, cfg.Orders.PlaceOrder)
	api.Put("/orders/:id/pickup", guarded, cfg.Orders.Pickup)
}
