// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics aggregates the engine's Prometheus collectors.
type EngineMetrics struct {
	DispatchesTotal    *prometheus.CounterVec
	WorkflowMatches    *prometheus.CounterVec
	ActionFailures     *prometheus.CounterVec
	WorkflowTimeouts   *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	WorkflowsEvaluated prometheus.Histogram
}

// New registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Name:      "dispatches_total",
			Help:      "Number of dispatches handled, by trigger kind.",
		}, []string{"trigger"}),
		WorkflowMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Name:      "workflow_matches_total",
			Help:      "Number of workflow evaluations that matched, by trigger kind.",
		}, []string{"trigger"}),
		ActionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Name:      "action_failures_total",
			Help:      "Number of failed action executions, by action type.",
		}, []string{"action_type"}),
		WorkflowTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleflow",
			Name:      "workflow_timeouts_total",
			Help:      "Number of workflows abandoned for exceeding the time budget.",
		}, []string{"trigger"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ruleflow",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall-clock duration of one dispatch, by trigger kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		WorkflowsEvaluated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ruleflow",
			Name:      "workflows_evaluated_per_dispatch",
			Help:      "Number of workflows evaluated in one dispatch.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
	}

	reg.MustRegister(
		m.DispatchesTotal,
		m.WorkflowMatches,
		m.ActionFailures,
		m.WorkflowTimeouts,
		m.DispatchDuration,
		m.WorkflowsEvaluated,
	)

	return m
}
