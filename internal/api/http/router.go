package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/api/http/handlers"
	"github.com/spec-kit/user-sync-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Webhook        *handlers.WebhookHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhooks/identity", cfg.Webhook.Handle)

	internal := app.Group("/internal", cfg.AuthMiddleware.Handle)
	internal.Get("/users/:externalID", cfg.Users.Get)
}
