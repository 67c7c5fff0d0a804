// Package main provides the Kindra workflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/darinjswilliams/kindrahealth/pkg/approval"
	"github.com/darinjswilliams/kindrahealth/pkg/engine"
	"github.com/darinjswilliams/kindrahealth/pkg/eventbus"
	"github.com/darinjswilliams/kindrahealth/pkg/executor"
	"github.com/darinjswilliams/kindrahealth/pkg/monitor"
	"github.com/darinjswilliams/kindrahealth/pkg/notify"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
	"github.com/darinjswilliams/kindrahealth/pkg/providers/simulated"
	"github.com/darinjswilliams/kindrahealth/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger        *slog.Logger
	repo          persistence.WorkflowRepository
	eventBus      eventbus.EventBus
	notifier      notify.Notifier
	tracer        trace.Tracer
	monitorConfig monitor.Config
	validate      *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	repo persistence.WorkflowRepository,
	eventBus eventbus.EventBus,
	notifier notify.Notifier,
	tracer trace.Tracer,
	monitorConfig monitor.Config,
) *API {
	return &API{
		logger:        logger,
		repo:          repo,
		eventBus:      eventBus,
		notifier:      notifier,
		tracer:        tracer,
		monitorConfig: monitorConfig,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	providerSet := simulated.NewSet()
	gate := approval.NewGate(a.logger)
	actionExecutor := executor.NewExecutor(providerSet, a.logger)
	supervisor := monitor.NewSupervisor(
		providerSet,
		clockwork.NewRealClock(),
		a.monitorConfig,
		a.eventBus,
		a.logger,
	)

	workflowEngine := engine.NewEngine(
		a.repo,
		actionExecutor,
		gate,
		supervisor,
		a.eventBus,
		a.notifier,
		a.tracer,
		a.logger,
	)

	handlers := web.NewAPIHandlers(workflowEngine, a.repo, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Kindra Workflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.ExecuteWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Get("/:id/alerts", handlers.GetWorkflowAlerts)
	w.Post("/:id/approve", handlers.ApproveWorkflow)
	w.Post("/:id/reject", handlers.RejectWorkflow)
	w.Post("/:id/actions/:actionId/retry", handlers.RetryAction)

	app.Get("/dashboard", handlers.GetDashboard)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	a.logger.InfoContext(ctx, "API server listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
