package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinflux/ruleflow/pkg/compiler"
	"github.com/coinflux/ruleflow/pkg/eventbus"
	"github.com/coinflux/ruleflow/pkg/events"
	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence"
)

// PublishingService implements the lifecycle state machine:
//
//	DRAFT -> ACTIVE <-> PAUSED -> ARCHIVED (terminal from any state)
//
// Going ACTIVE always recompiles the graph and requires zero compile
// errors, which is what keeps logic state and visual state from diverging.
// The IsActive kill switch is orthogonal: it stops dispatch without
// touching the status.
type PublishingService struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

func NewPublishingService(p persistence.Persistence, eventBus eventbus.EventPublisher, logger *slog.Logger) *PublishingService {
	return &PublishingService{
		persistence: p,
		eventBus:    eventBus,
		logger:      logger.With("module", "workflow_publishing"),
	}
}

// Validate dry-runs the compile gate without changing any state, returning
// the same error list a publish would reject with.
func (s *PublishingService) Validate(workflow *models.Workflow) []compiler.CompileError {
	_, compileErrs := compiler.Compile(workflow.VisualState, workflow.Version)

	return compileErrs
}

// Publish recompiles the workflow's graph and, when it compiles cleanly,
// transitions it to ACTIVE with the kill switch on. A workflow with
// compile errors stays exactly where it was.
func (s *PublishingService) Publish(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	expression, compileErrs := compiler.Compile(workflow.VisualState, workflow.Version)
	if len(compileErrs) > 0 {
		return nil, &CompileFailedError{WorkflowID: workflowID, Errors: compileErrs}
	}

	workflow.LogicState = expression
	workflow.Status = models.WorkflowStatusActive
	workflow.IsActive = true
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	s.logger.Info("Workflow published",
		"workflow_id", workflow.ID,
		"version", workflow.Version,
		"trigger", workflow.Trigger)

	s.publishEvent(ctx, events.NewWorkflowPublished(workflow))

	return workflow, nil
}

// Pause stops dispatch for an ACTIVE workflow without losing its
// configuration or compiled state.
func (s *PublishingService) Pause(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, ErrNotActive
	}

	workflow.Status = models.WorkflowStatusPaused
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Resume moves a PAUSED workflow back to ACTIVE. If the graph was edited
// while paused the compiled state is stale, so resuming goes through the
// same compile gate as a publish.
func (s *PublishingService) Resume(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusPaused {
		return nil, ErrNotPaused
	}

	if workflow.LogicStale() {
		return s.Publish(ctx, workflowID)
	}

	workflow.Status = models.WorkflowStatusActive
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Archive terminally retires a workflow. Archived workflows are excluded
// from every dispatcher lookup and cannot transition again.
func (s *PublishingService) Archive(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	workflow.Status = models.WorkflowStatusArchived
	workflow.IsActive = false
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewWorkflowArchived(workflow))

	return workflow, nil
}

// SetActive flips the operational kill switch without changing the status.
func (s *PublishingService) SetActive(ctx context.Context, workflowID string, active bool) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	workflow.IsActive = active
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// publishEvent emits a lifecycle event. The bus is optional and
// best-effort; lifecycle operations never fail on event delivery.
func (s *PublishingService) publishEvent(ctx context.Context, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(ctx, event.Key(), event); err != nil {
		s.logger.Warn("Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}
