package models

import "time"

// ActionResult records the outcome of executing one matched action.
// Skipped marks an action no handler was registered for; it ran nothing
// and must not be reported as executed.
type ActionResult struct {
	Type    ActionType `json:"type"`
	Error   string     `json:"error,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Skipped bool       `json:"skipped,omitempty"`
}

// WorkflowResult is the per-workflow slice of an execution report.
//
// Skipped marks workflows whose compiled state could not be used (stale or
// missing logic); TimedOut marks workflows abandoned after exceeding the
// per-workflow time budget. Both still count as dispatch attempts.
type WorkflowResult struct {
	WorkflowID      string         `json:"workflow_id"`
	WorkflowName    string         `json:"workflow_name,omitempty"`
	Matched         bool           `json:"matched"`
	ActionsExecuted []ActionResult `json:"actions_executed,omitempty"`
	ActionsFailed   []ActionResult `json:"actions_failed,omitempty"`
	Skipped         bool           `json:"skipped,omitempty"`
	TimedOut        bool           `json:"timed_out,omitempty"`
}

// ExecutionReport is the audit record of one dispatch: which workflows were
// evaluated for the trigger, in effective priority order, and what each one
// did. The triggering business transaction never sees a failure; everything
// that went wrong is absorbed into this report.
type ExecutionReport struct {
	ID         string           `json:"id"`
	Trigger    TriggerKind      `json:"trigger"`
	EntityType string           `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMs int64            `json:"duration_ms"`
	Results    []WorkflowResult `json:"results"`
}

// Matched reports whether any workflow in the report matched.
func (r *ExecutionReport) Matched() bool {
	for _, result := range r.Results {
		if result.Matched {
			return true
		}
	}

	return false
}

// FailureCount returns the total number of failed actions across workflows.
func (r *ExecutionReport) FailureCount() int {
	count := 0
	for _, result := range r.Results {
		count += len(result.ActionsFailed)
	}

	return count
}
