package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return p
}

func workflowFixture(id string, trigger models.TriggerKind, priority int, createdAt time.Time) *models.Workflow {
	return &models.Workflow{
		ID:        id,
		Name:      "workflow " + id,
		Trigger:   trigger,
		Status:    models.WorkflowStatusActive,
		IsActive:  true,
		Priority:  priority,
		Version:   1,
		CreatedAt: createdAt,
	}
}

func TestSaveAndReadWorkflow(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	workflow := workflowFixture("w1", models.TriggerOrderCreated, 10, time.Now().UTC())
	require.NoError(t, p.SaveWorkflow(ctx, workflow))

	loaded, err := p.WorkflowByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, loaded.ID)
	assert.Equal(t, workflow.Trigger, loaded.Trigger)
	assert.Equal(t, workflow.Priority, loaded.Priority)
}

func TestWorkflowByID_NotFound(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.WorkflowByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDeleteWorkflow_NotFound(t *testing.T) {
	p := newTestPersistence(t)

	err := p.DeleteWorkflow(context.Background(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestListActiveWorkflowsByTrigger_Ordering(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Same priority: created-at breaks the tie, oldest first.
	require.NoError(t, p.SaveWorkflow(ctx, workflowFixture("older-tie", models.TriggerOrderCreated, 50, base)))
	require.NoError(t, p.SaveWorkflow(ctx, workflowFixture("newer-tie", models.TriggerOrderCreated, 50, base.Add(time.Hour))))
	require.NoError(t, p.SaveWorkflow(ctx, workflowFixture("highest", models.TriggerOrderCreated, 90, base.Add(2*time.Hour))))
	require.NoError(t, p.SaveWorkflow(ctx, workflowFixture("lowest", models.TriggerOrderCreated, 5, base)))

	listed, err := p.ListActiveWorkflowsByTrigger(ctx, models.TriggerOrderCreated)
	require.NoError(t, err)
	require.Len(t, listed, 4)

	assert.Equal(t, "highest", listed[0].ID)
	assert.Equal(t, "older-tie", listed[1].ID)
	assert.Equal(t, "newer-tie", listed[2].ID)
	assert.Equal(t, "lowest", listed[3].ID)
}

func TestListActiveWorkflowsByTrigger_Filtering(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()

	eligible := workflowFixture("eligible", models.TriggerPayoutRequested, 50, now)

	paused := workflowFixture("paused", models.TriggerPayoutRequested, 90, now)
	paused.Status = models.WorkflowStatusPaused

	killSwitched := workflowFixture("kill-switched", models.TriggerPayoutRequested, 90, now)
	killSwitched.IsActive = false

	otherTrigger := workflowFixture("other-trigger", models.TriggerKYCSubmitted, 90, now)

	for _, workflow := range []*models.Workflow{eligible, paused, killSwitched, otherTrigger} {
		require.NoError(t, p.SaveWorkflow(ctx, workflow))
	}

	listed, err := p.ListActiveWorkflowsByTrigger(ctx, models.TriggerPayoutRequested)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "eligible", listed[0].ID)
}

func TestRecordExecution(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.SaveWorkflow(ctx, workflowFixture("w1", models.TriggerOrderCreated, 10, time.Now().UTC())))

	require.NoError(t, p.RecordExecution(ctx, "w1", true))
	require.NoError(t, p.RecordExecution(ctx, "w1", false))

	loaded, err := p.WorkflowByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.ExecutionCount)
	require.NotNil(t, loaded.LastExecutedAt)
	assert.WithinDuration(t, time.Now().UTC(), *loaded.LastExecutedAt, time.Minute)
}

func TestRecordExecution_UnknownWorkflow(t *testing.T) {
	p := newTestPersistence(t)

	err := p.RecordExecution(context.Background(), "missing", true)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionReports_FilterAndOrder(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	reports := []*models.ExecutionReport{
		{ID: "r2", Trigger: models.TriggerOrderCreated, EntityType: "order", EntityID: "o-1", StartedAt: base.Add(time.Hour)},
		{ID: "r1", Trigger: models.TriggerOrderCreated, EntityType: "order", EntityID: "o-1", StartedAt: base},
		{ID: "r3", Trigger: models.TriggerOrderCreated, EntityType: "order", EntityID: "o-2", StartedAt: base},
	}

	for _, report := range reports {
		require.NoError(t, p.SaveExecutionReport(ctx, report))
	}

	listed, err := p.ExecutionReports(ctx, "order", "o-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "r1", listed[0].ID)
	assert.Equal(t, "r2", listed[1].ID)
}

func TestPruneExecutionReports(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, p.SaveExecutionReport(ctx, &models.ExecutionReport{
		ID: "old", EntityType: "order", EntityID: "o-1", StartedAt: base,
	}))
	require.NoError(t, p.SaveExecutionReport(ctx, &models.ExecutionReport{
		ID: "recent", EntityType: "order", EntityID: "o-1", StartedAt: base.Add(48 * time.Hour),
	}))

	pruned, err := p.PruneExecutionReports(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	remaining, err := p.ExecutionReports(ctx, "order", "o-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].ID)
}
