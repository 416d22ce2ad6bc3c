// Package main provides the flowgrid API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/flowgrid/flowgrid/pkg/services"
	"github.com/flowgrid/flowgrid/pkg/triggers"
	"github.com/flowgrid/flowgrid/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.persistence),
		services.NewExecution(a.persistence),
		triggers.NewLauncher(a.persistence, a.eventBus, a.logger),
		a.eventBus,
		a.validate,
		a.registry,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowgrid API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
