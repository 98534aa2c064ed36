// Package main provides the Ruleflow listener: the daemon that consumes
// business events from Kafka and dispatches active workflows against them.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/coinflux/ruleflow/pkg/cache"
	"github.com/coinflux/ruleflow/pkg/dispatcher"
	"github.com/coinflux/ruleflow/pkg/eventbus"
	"github.com/coinflux/ruleflow/pkg/events"
	"github.com/coinflux/ruleflow/pkg/executor"
	"github.com/coinflux/ruleflow/pkg/metrics"
	"github.com/coinflux/ruleflow/pkg/persistence"
)

// pruneSchedule runs the report retention job nightly, off-peak.
const pruneSchedule = "0 3 * * *"

type Listener struct {
	id            string
	logger        *slog.Logger
	persistence   persistence.Persistence
	subscriber    message.Subscriber
	eventBus      eventbus.EventBus
	expressions   *cache.ExpressionCache
	dispatcher    *dispatcher.Dispatcher
	validate      *validator.Validate
	registry      *prometheus.Registry
	cron          *cron.Cron
	retentionDays int
	metricsPort   int
}

func NewListener(
	id string,
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	expressionCache *cache.ExpressionCache,
	tracer trace.Tracer,
	kafkaBrokers string,
	retentionDays, metricsPort int,
) (*Listener, error) {
	subscriber, err := eventbus.NewKafkaSubscriber(kafkaBrokers, "ruleflow-listener", watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	exec := executor.NewDefaultExecutor(
		logger,
		executor.NewOrderBridge(eventBus),
		executor.NewNotificationBridge(eventBus),
		executor.NewReviewBridge(eventBus),
	)

	d := dispatcher.NewDispatcher(p, exec, logger).
		WithEventBus(eventBus).
		WithMetrics(metrics.New(registry))
	if expressionCache != nil {
		d = d.WithExpressionCache(expressionCache)
	}

	if tracer != nil {
		d = d.WithTracer(tracer)
	}

	return &Listener{
		id:            id,
		logger:        logger,
		persistence:   p,
		subscriber:    subscriber,
		eventBus:      eventBus,
		expressions:   expressionCache,
		dispatcher:    d,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		registry:      registry,
		cron:          cron.New(),
		retentionDays: retentionDays,
		metricsPort:   metricsPort,
	}, nil
}

// Start consumes business events until the context is cancelled or the
// process receives SIGINT/SIGTERM.
func (l *Listener) Start(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	messages, err := l.subscriber.Subscribe(ctx, events.BusinessEventTopic)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to subscribe to business events", "error", err)

		return
	}

	l.startRetentionJob(ctx)
	l.startMetricsServer(ctx)
	l.startEngineEventConsumer(ctx)

	l.logger.InfoContext(ctx, "Listening for business events", "topic", events.BusinessEventTopic)

	for {
		select {
		case <-ctx.Done():
			l.cron.Stop()
			l.logger.Info("Listener stopped")

			return
		case msg, ok := <-messages:
			if !ok {
				l.logger.Info("Business event stream closed")

				return
			}

			l.handle(ctx, msg)
		}
	}
}

// handle dispatches one business event. Malformed messages are logged and
// acknowledged: redelivering them cannot make them well-formed, and dispatch
// itself never fails.
func (l *Listener) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var event events.BusinessEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		l.logger.ErrorContext(ctx, "Discarding malformed business event",
			"message_id", msg.UUID, "error", err)

		return
	}

	if err := l.validate.Struct(event); err != nil {
		l.logger.ErrorContext(ctx, "Discarding incomplete business event",
			"message_id", msg.UUID, "error", err)

		return
	}

	if !event.Trigger.IsValid() {
		l.logger.ErrorContext(ctx, "Discarding business event with unknown trigger",
			"message_id", msg.UUID, "trigger", event.Trigger)

		return
	}

	l.dispatcher.Dispatch(ctx, event.Trigger, event.Context, event.EntityType, event.EntityID)
}

// startEngineEventConsumer keeps the shared expression cache honest: when
// a workflow is republished or archived anywhere in the cluster, the cached
// expression for it is dropped so the next dispatch recompiles.
func (l *Listener) startEngineEventConsumer(ctx context.Context) {
	if l.expressions == nil {
		return
	}

	registerExpressionInvalidation(l.eventBus, l.expressions, l.logger)

	if err := l.eventBus.Subscribe(ctx); err != nil {
		l.logger.ErrorContext(ctx, "Failed to subscribe to engine events", "error", err)
	}
}

func registerExpressionInvalidation(bus eventbus.EventSubscriber, expressions *cache.ExpressionCache, logger *slog.Logger) {
	invalidate := func(ctx context.Context, workflowID string) error {
		if err := expressions.Invalidate(ctx, workflowID); err != nil {
			logger.ErrorContext(ctx, "Failed to invalidate cached expression",
				"workflow_id", workflowID, "error", err)

			return err
		}

		logger.DebugContext(ctx, "Invalidated cached expression", "workflow_id", workflowID)

		return nil
	}

	_ = bus.Handle(events.WorkflowPublishedEvent, func(ctx context.Context, event any) error {
		published, ok := event.(*events.WorkflowPublished)
		if !ok {
			return nil
		}

		return invalidate(ctx, published.WorkflowID)
	})

	_ = bus.Handle(events.WorkflowArchivedEvent, func(ctx context.Context, event any) error {
		archived, ok := event.(*events.WorkflowArchived)
		if !ok {
			return nil
		}

		return invalidate(ctx, archived.WorkflowID)
	})
}

// startRetentionJob prunes old execution reports on a nightly schedule.
func (l *Listener) startRetentionJob(ctx context.Context) {
	if l.retentionDays <= 0 {
		return
	}

	_, err := l.cron.AddFunc(pruneSchedule, func() {
		olderThan := time.Now().UTC().AddDate(0, 0, -l.retentionDays)

		pruned, err := l.persistence.PruneExecutionReports(ctx, olderThan)
		if err != nil {
			l.logger.Error("Failed to prune execution reports", "error", err)

			return
		}

		l.logger.Info("Pruned execution reports",
			"pruned", pruned, "older_than", olderThan)
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to schedule retention job", "error", err)

		return
	}

	l.cron.Start()
}

func (l *Listener) startMetricsServer(ctx context.Context) {
	if l.metricsPort <= 0 {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(l.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(l.metricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.logger.Error("Metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()
}
