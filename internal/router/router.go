package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evalarena/evalarena-go-api/internal/config"
	"github.com/evalarena/evalarena-go-api/internal/handler"
	"github.com/evalarena/evalarena-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	OptionalIdentity  fiber.Handler
	RequireIdentity   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	optionalIdentity := deps.OptionalIdentity
	if optionalIdentity == nil {
		optionalIdentity = func(c *fiber.Ctx) error { return c.Next() }
	}
	requireIdentity := deps.RequireIdentity
	if requireIdentity == nil {
		requireIdentity = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Evaluation endpoints live at the root, matching the paths clients
	// already use.
	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(app, optionalIdentity, requireIdentity)
	}
}
