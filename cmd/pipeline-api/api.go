// Package main provides the pipeline API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/idpflow/pkg/engine"
	"github.com/dukex/idpflow/pkg/persistence"
	"github.com/dukex/idpflow/pkg/projects"
	"github.com/dukex/idpflow/pkg/registry"
	"github.com/dukex/idpflow/pkg/services"
	"github.com/dukex/idpflow/pkg/storage"
	"github.com/dukex/idpflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	engine      *engine.Engine
	projects    projects.Directory
	files       storage.Store
	activity    *services.Activity
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	engine *engine.Engine,
	projects projects.Directory,
	files storage.Store,
	activity *services.Activity,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		engine:      engine,
		projects:    projects,
		files:       files,
		activity:    activity,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	pipelineService := services.NewPipelines(a.persistence, a.engine, a.registry, a.projects, a.files, a.logger)

	handlers := web.NewAPIHandlers(pipelineService, a.activity, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pipeline API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Pipeline API listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
