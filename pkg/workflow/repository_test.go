package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence/file"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	return NewRepository(p)
}

func validGraph() *models.Graph {
	return &models.Graph{
		Nodes: []models.GraphNode{
			{ID: "t1", Type: models.NodeTypeTrigger},
			{ID: "c1", Type: models.NodeTypeCondition, Data: map[string]any{
				"field": "order.amount", "operator": ">", "value": 10000,
			}},
			{ID: "a1", Type: models.NodeTypeAction, Data: map[string]any{"action_type": "FREEZE_ORDER"}},
			{ID: "a2", Type: models.NodeTypeAction, Data: map[string]any{"action_type": "AUTO_APPROVE"}},
		},
		Edges: []models.GraphEdge{
			{ID: "e1", Source: "t1", Target: "c1"},
			{ID: "e2", Source: "c1", Target: "a1", SourceHandle: models.HandleTrue},
			{ID: "e3", Source: "c1", Target: "a2", SourceHandle: models.HandleFalse},
		},
	}
}

func draftWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:        "large order freeze",
		Description: "freeze orders above threshold",
		Trigger:     models.TriggerOrderCreated,
		Priority:    50,
		VisualState: validGraph(),
		CreatedBy:   "ops@example.com",
	}
}

func TestCreate_StartsAsInactiveDraft(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, draftWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.False(t, created.IsActive)
	assert.Equal(t, 1, created.Version)
	assert.Nil(t, created.LogicState)
	assert.Zero(t, created.ExecutionCount)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreate_RejectsMalformedGraphDocument(t *testing.T) {
	repo := newTestRepository(t)

	workflow := draftWorkflow()
	workflow.VisualState = &models.Graph{
		Nodes: []models.GraphNode{{ID: "", Type: "widget"}},
	}

	_, err := repo.Create(context.Background(), workflow)
	assert.Error(t, err)
}

func TestUpdateGraph_BumpsVersionAndInvalidatesLogic(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, draftWorkflow())
	require.NoError(t, err)

	// Simulate a published compiled state to verify it is invalidated.
	created.LogicState = &models.Expression{Version: 1, Root: &models.ExprNode{Kind: models.ExprBranch}}
	require.NoError(t, repo.persistence.SaveWorkflow(ctx, created))

	updated, err := repo.UpdateGraph(ctx, created.ID, validGraph())
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Nil(t, updated.LogicState)
}

func TestUpdateGraph_RejectsActiveWorkflow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, draftWorkflow())
	require.NoError(t, err)

	created.Status = models.WorkflowStatusActive
	require.NoError(t, repo.persistence.SaveWorkflow(ctx, created))

	_, err = repo.UpdateGraph(ctx, created.ID, validGraph())
	assert.ErrorIs(t, err, ErrCannotEditActive)
}

func TestUpdateGraph_RejectsArchivedWorkflow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, draftWorkflow())
	require.NoError(t, err)

	created.Status = models.WorkflowStatusArchived
	require.NoError(t, repo.persistence.SaveWorkflow(ctx, created))

	_, err = repo.UpdateGraph(ctx, created.ID, validGraph())
	assert.ErrorIs(t, err, ErrWorkflowArchived)
}

func TestUpdateMetadata(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, draftWorkflow())
	require.NoError(t, err)

	updated, err := repo.UpdateMetadata(ctx, created.ID, "renamed", "", 90, nil)
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 90, updated.Priority)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, 1, updated.Version)
}
