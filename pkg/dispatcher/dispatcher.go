// Package dispatcher evaluates active workflows against business events.
//
// Dispatch sits on the critical path of the surrounding back office, so it
// never returns an error: storage failures, stale workflows, misbehaving
// actions and exceeded time budgets are all absorbed into the execution
// report the caller receives.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coinflux/ruleflow/pkg/cache"
	"github.com/coinflux/ruleflow/pkg/evaluator"
	"github.com/coinflux/ruleflow/pkg/eventbus"
	"github.com/coinflux/ruleflow/pkg/events"
	"github.com/coinflux/ruleflow/pkg/executor"
	"github.com/coinflux/ruleflow/pkg/metrics"
	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/otelhelper"
	"github.com/coinflux/ruleflow/pkg/persistence"
)

// DefaultWorkflowBudget bounds how long a single workflow may spend
// evaluating and executing actions before the dispatcher abandons it and
// moves on to the next one.
const DefaultWorkflowBudget = 5 * time.Second

// Dispatcher runs every dispatchable workflow for a trigger kind, in
// priority order, and assembles the execution report.
type Dispatcher struct {
	persistence    persistence.Persistence
	executor       *executor.Executor
	logger         *slog.Logger
	expressions    *cache.ExpressionCache
	eventBus       eventbus.EventPublisher
	metrics        *metrics.EngineMetrics
	tracer         trace.Tracer
	workflowBudget time.Duration
}

func NewDispatcher(p persistence.Persistence, exec *executor.Executor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence:    p,
		executor:       exec,
		logger:         logger.With("module", "dispatcher"),
		workflowBudget: DefaultWorkflowBudget,
	}
}

// WithExpressionCache attaches a compiled-expression cache. Optional; the
// dispatcher falls back to the stored logic state on every miss.
func (d *Dispatcher) WithExpressionCache(c *cache.ExpressionCache) *Dispatcher {
	d.expressions = c

	return d
}

// WithEventBus makes the dispatcher publish a DispatchCompleted event after
// every dispatch. Optional and best-effort.
func (d *Dispatcher) WithEventBus(eb eventbus.EventPublisher) *Dispatcher {
	d.eventBus = eb

	return d
}

func (d *Dispatcher) WithMetrics(m *metrics.EngineMetrics) *Dispatcher {
	d.metrics = m

	return d
}

func (d *Dispatcher) WithTracer(t trace.Tracer) *Dispatcher {
	d.tracer = t

	return d
}

func (d *Dispatcher) WithWorkflowBudget(budget time.Duration) *Dispatcher {
	if budget > 0 {
		d.workflowBudget = budget
	}

	return d
}

// Dispatch evaluates every dispatchable workflow bound to the trigger kind
// against the event context and returns the audit report. Workflows run in
// priority order (highest first, oldest first on ties); a failure inside one
// workflow never prevents the remaining ones from running.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	trigger models.TriggerKind,
	eventContext models.ExecutionContext,
	entityType, entityID string,
) *models.ExecutionReport {
	startedAt := time.Now().UTC()

	report := &models.ExecutionReport{
		ID:         uuid.New().String(),
		Trigger:    trigger,
		EntityType: entityType,
		EntityID:   entityID,
		StartedAt:  startedAt,
	}

	if d.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, d.tracer, "dispatcher.dispatch",
			attribute.String(otelhelper.TriggerKindKey, string(trigger)),
			attribute.String(otelhelper.EntityTypeKey, entityType),
			attribute.String(otelhelper.EntityIDKey, entityID),
			attribute.String(otelhelper.ReportIDKey, report.ID),
		)
		defer span.End()
	}

	logger := d.logger.With(
		"trigger", trigger,
		"entity_type", entityType,
		"entity_id", entityID,
		"report_id", report.ID,
	)

	workflows, err := d.persistence.ListActiveWorkflowsByTrigger(ctx, trigger)
	if err != nil {
		// An unreachable store means no workflows run, not a failed
		// business transaction. The empty report records the attempt.
		logger.Error("Failed to list workflows for trigger", "error", err)
		otelhelper.SetError(trace.SpanFromContext(ctx), err)

		return d.finish(ctx, report, startedAt, logger)
	}

	logger.Info("Dispatching business event", "workflows", len(workflows))

	for _, workflow := range workflows {
		if !workflow.Dispatchable() {
			// The store query already filters on status and the kill
			// switch; this guards non-SQL adapters.
			continue
		}

		result := d.runWorkflow(ctx, workflow, eventContext, entityType, entityID, logger)
		report.Results = append(report.Results, result)

		if err := d.persistence.RecordExecution(ctx, workflow.ID, result.Matched); err != nil {
			logger.Error("Failed to record workflow execution",
				"workflow_id", workflow.ID, "error", err)
		}

		if d.metrics != nil {
			if result.Matched {
				d.metrics.WorkflowMatches.WithLabelValues(string(trigger)).Inc()
			}

			if result.TimedOut {
				d.metrics.WorkflowTimeouts.WithLabelValues(string(trigger)).Inc()
			}

			for _, failed := range result.ActionsFailed {
				d.metrics.ActionFailures.WithLabelValues(string(failed.Type)).Inc()
			}
		}
	}

	return d.finish(ctx, report, startedAt, logger)
}

// runWorkflow evaluates one workflow under its time budget. A workflow that
// exceeds the budget is abandoned and reported as timed out; its in-flight
// action observes the cancelled context and aborts.
func (d *Dispatcher) runWorkflow(
	ctx context.Context,
	workflow *models.Workflow,
	eventContext models.ExecutionContext,
	entityType, entityID string,
	logger *slog.Logger,
) models.WorkflowResult {
	wctx, cancel := context.WithTimeout(ctx, d.workflowBudget)
	defer cancel()

	done := make(chan models.WorkflowResult, 1)

	go func() {
		done <- d.evaluateWorkflow(wctx, workflow, eventContext, entityType, entityID, logger)
	}()

	select {
	case result := <-done:
		return result
	case <-wctx.Done():
		logger.Warn("Workflow exceeded time budget, abandoning",
			"workflow_id", workflow.ID,
			"budget", d.workflowBudget)

		return models.WorkflowResult{
			WorkflowID:   workflow.ID,
			WorkflowName: workflow.Name,
			TimedOut:     true,
		}
	}
}

func (d *Dispatcher) evaluateWorkflow(
	ctx context.Context,
	workflow *models.Workflow,
	eventContext models.ExecutionContext,
	entityType, entityID string,
	logger *slog.Logger,
) models.WorkflowResult {
	result := models.WorkflowResult{
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
	}

	if workflow.LogicStale() {
		// An active workflow without a matching compiled expression is a
		// publishing bug; treat it as non-matching and make it visible.
		logger.Warn("Workflow logic state is stale, skipping",
			"workflow_id", workflow.ID,
			"workflow_version", workflow.Version)

		result.Skipped = true

		return result
	}

	expression := d.loadExpression(ctx, workflow)

	actions := evaluator.Evaluate(expression, eventContext)
	if len(actions) == 0 {
		return result
	}

	result.Matched = true

	logger.Info("Workflow matched",
		"workflow_id", workflow.ID,
		"priority", workflow.Priority,
		"actions", len(actions))

	for _, action := range actions {
		if ctx.Err() != nil {
			result.TimedOut = true

			return result
		}

		actionResult := d.executor.Execute(ctx, action, entityType, entityID)

		switch {
		case actionResult.Error != "":
			result.ActionsFailed = append(result.ActionsFailed, actionResult)
		case actionResult.Skipped:
			// The executor already logged it; recording a no-op as
			// executed would corrupt the audit trail.
		default:
			result.ActionsExecuted = append(result.ActionsExecuted, actionResult)
		}
	}

	return result
}

// loadExpression prefers the cached compiled expression for the workflow's
// current version and falls back to the stored logic state.
func (d *Dispatcher) loadExpression(ctx context.Context, workflow *models.Workflow) *models.Expression {
	if d.expressions == nil {
		return workflow.LogicState
	}

	if expression, ok := d.expressions.Get(ctx, workflow.ID, workflow.Version); ok {
		return expression
	}

	if err := d.expressions.Set(ctx, workflow.ID, workflow.LogicState); err != nil {
		d.logger.Debug("Failed to cache compiled expression",
			"workflow_id", workflow.ID, "error", err)
	}

	return workflow.LogicState
}

// finish stamps the report, persists it, publishes the completion event and
// updates the dispatch metrics. All of it is best-effort.
func (d *Dispatcher) finish(
	ctx context.Context,
	report *models.ExecutionReport,
	startedAt time.Time,
	logger *slog.Logger,
) *models.ExecutionReport {
	report.DurationMs = time.Since(startedAt).Milliseconds()

	span := trace.SpanFromContext(ctx)

	if err := d.persistence.SaveExecutionReport(ctx, report); err != nil {
		logger.Error("Failed to persist execution report", "error", err)
		otelhelper.SetError(span, err, attribute.String(otelhelper.ReportIDKey, report.ID))
	}

	if d.eventBus != nil {
		event := events.NewDispatchCompleted(report)
		if err := d.eventBus.Publish(ctx, event.Key(), event); err != nil {
			logger.Error("Failed to publish dispatch completed event", "error", err)
			otelhelper.SetError(span, err, attribute.String(otelhelper.ReportIDKey, report.ID))
		}
	}

	if d.metrics != nil {
		d.metrics.DispatchesTotal.WithLabelValues(string(report.Trigger)).Inc()
		d.metrics.DispatchDuration.WithLabelValues(string(report.Trigger)).
			Observe(time.Since(startedAt).Seconds())
		d.metrics.WorkflowsEvaluated.Observe(float64(len(report.Results)))
	}

	logger.Info("Dispatch completed",
		"workflows_evaluated", len(report.Results),
		"matched", report.Matched(),
		"action_failures", report.FailureCount(),
		"duration_ms", report.DurationMs)

	return report
}
