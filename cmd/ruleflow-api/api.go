// Package main provides the Ruleflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/coinflux/ruleflow/pkg/cache"
	"github.com/coinflux/ruleflow/pkg/dispatcher"
	"github.com/coinflux/ruleflow/pkg/eventbus"
	"github.com/coinflux/ruleflow/pkg/executor"
	"github.com/coinflux/ruleflow/pkg/metrics"
	"github.com/coinflux/ruleflow/pkg/persistence"
	"github.com/coinflux/ruleflow/pkg/web"
	"github.com/coinflux/ruleflow/pkg/workflow"
)

type API struct {
	logger          *slog.Logger
	persistence     persistence.Persistence
	eventBus        eventbus.EventBus
	expressionCache *cache.ExpressionCache
	tracer          trace.Tracer
	validate        *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	expressionCache *cache.ExpressionCache,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:          logger,
		persistence:     p,
		eventBus:        eventBus,
		expressionCache: expressionCache,
		tracer:          tracer,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	repository := workflow.NewRepository(a.persistence)
	publishing := workflow.NewPublishingService(a.persistence, a.eventBus, a.logger)

	exec := executor.NewDefaultExecutor(
		a.logger,
		executor.NewOrderBridge(a.eventBus),
		executor.NewNotificationBridge(a.eventBus),
		executor.NewReviewBridge(a.eventBus),
	)

	d := dispatcher.NewDispatcher(a.persistence, exec, a.logger).
		WithEventBus(a.eventBus).
		WithMetrics(metrics.New(registry))
	if a.expressionCache != nil {
		d = d.WithExpressionCache(a.expressionCache)
	}

	if a.tracer != nil {
		d = d.WithTracer(a.tracer)
	}

	handlers := web.NewAPIHandlers(repository, publishing, d, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Ruleflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Put("/:id/graph", handlers.UpdateWorkflowGraph)
	w.Delete("/:id", handlers.DeleteWorkflow)

	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Post("/:id/pause", handlers.PauseWorkflow)
	w.Post("/:id/resume", handlers.ResumeWorkflow)
	w.Post("/:id/archive", handlers.ArchiveWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/deactivate", handlers.DeactivateWorkflow)

	app.Post("/dispatch", handlers.Dispatch)
	app.Get("/reports", handlers.GetExecutionReports)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
