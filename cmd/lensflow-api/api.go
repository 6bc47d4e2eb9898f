// Package main provides the Lensflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/jobs"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/lensflow/lensflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	manager  *jobs.Manager
	catalog  catalog.Catalog
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	reg *registry.Registry,
	manager *jobs.Manager,
	cat catalog.Catalog,
) *API {
	return &API{
		logger:   logger,
		registry: reg,
		manager:  manager,
		catalog:  cat,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.registry, a.manager, a.catalog, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lensflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
