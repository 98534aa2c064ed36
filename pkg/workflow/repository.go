package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence"
	"github.com/coinflux/ruleflow/pkg/schema"
)

// Repository wraps persistence with the editing rules of the workflow
// model: new workflows start as inactive drafts, and every graph edit bumps
// the version and invalidates the compiled state.
type Repository struct {
	persistence persistence.Persistence
}

func NewRepository(p persistence.Persistence) *Repository {
	return &Repository{persistence: p}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	return r.persistence.Workflows(ctx)
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.persistence.WorkflowByID(ctx, id)
}

// Create stores a new workflow as an inactive draft at version 1.
func (r *Repository) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.VisualState != nil {
		if err := schema.ValidateGraph(workflow.VisualState); err != nil {
			return nil, err
		}
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.Status = models.WorkflowStatusDraft
	workflow.IsActive = false
	workflow.Version = 1
	workflow.LogicState = nil
	workflow.ExecutionCount = 0
	workflow.LastExecutedAt = nil

	if err := r.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// UpdateMetadata changes name, description, priority and trigger config
// without touching the graph or the compiled state.
func (r *Repository) UpdateMetadata(ctx context.Context, id string, name, description string, priority int, triggerConfig map[string]any) (*models.Workflow, error) {
	workflow, err := r.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	if name != "" {
		workflow.Name = name
	}

	if description != "" {
		workflow.Description = description
	}

	if priority >= 0 {
		workflow.Priority = priority
	}

	if triggerConfig != nil {
		workflow.TriggerConfig = triggerConfig
	}

	workflow.UpdatedAt = time.Now().UTC()

	if err := r.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// UpdateGraph replaces the editor graph of a DRAFT or PAUSED workflow.
// The version is bumped and the compiled state invalidated; the workflow
// cannot go (back to) ACTIVE until it is republished through the compiler.
func (r *Repository) UpdateGraph(ctx context.Context, id string, graph *models.Graph) (*models.Workflow, error) {
	if err := schema.ValidateGraph(graph); err != nil {
		return nil, err
	}

	workflow, err := r.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch workflow.Status {
	case models.WorkflowStatusArchived:
		return nil, ErrWorkflowArchived
	case models.WorkflowStatusActive:
		return nil, ErrCannotEditActive
	}

	workflow.VisualState = graph
	workflow.Version++
	workflow.LogicState = nil
	workflow.UpdatedAt = time.Now().UTC()

	if err := r.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Delete removes a workflow outright. Archiving is the usual end of life;
// hard deletion exists for discarded drafts.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.persistence.DeleteWorkflow(ctx, id)
}
