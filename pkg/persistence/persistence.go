// Package persistence abstracts storage of workflows and execution reports.
package persistence

import (
	"context"
	"time"

	"github.com/coinflux/ruleflow/pkg/models"
)

// Persistence is the storage contract the engine depends on.
//
// ListActiveWorkflowsByTrigger must return workflows ordered by priority
// descending with created-at ascending as tie-break; the dispatcher relies
// on that ordering being stable and deterministic. RecordExecution must
// bump the execution counter atomically, not read-modify-write, since
// concurrent triggers of the same workflow race on it.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	ListActiveWorkflowsByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Workflow, error)
	RecordExecution(ctx context.Context, workflowID string, matched bool) error

	SaveExecutionReport(ctx context.Context, report *models.ExecutionReport) error
	ExecutionReports(ctx context.Context, entityType, entityID string) ([]*models.ExecutionReport, error)
	PruneExecutionReports(ctx context.Context, olderThan time.Time) (int, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
