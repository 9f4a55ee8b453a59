package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/travelos/crm/internal/api/http/handlers"
	"github.com/travelos/crm/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Impersonation *handlers.ImpersonationHandler
	Gatekeeper    *auth.Gatekeeper
}

// RegisterRoutes wires HTTP routes. The gatekeeper runs ahead of every
// request; it decides internally which path prefixes are protected.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Gatekeeper.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	superAdmin := app.Group("/api/super-admin")
	superAdmin.Get("/impersonate", cfg.Impersonation.Start)
	superAdmin.Get("/impersonate/exit", cfg.Impersonation.Exit)
}
