package workflow

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinflux/ruleflow/pkg/mocks"
	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence/file"
)

func newTestPublishing(t *testing.T) (*PublishingService, *Repository, *mocks.MockEventBus) {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	eventBus := &mocks.MockEventBus{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewPublishingService(p, eventBus, logger), NewRepository(p), eventBus
}

func createDraft(t *testing.T, repo *Repository) *models.Workflow {
	t.Helper()

	created, err := repo.Create(context.Background(), draftWorkflow())
	require.NoError(t, err)

	return created
}

func TestPublish_CompilesAndActivates(t *testing.T) {
	publishing, repo, eventBus := newTestPublishing(t)
	ctx := context.Background()

	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	created := createDraft(t, repo)

	published, err := publishing.Publish(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusActive, published.Status)
	assert.True(t, published.IsActive)
	require.NotNil(t, published.LogicState)
	assert.Equal(t, published.Version, published.LogicState.Version)
	assert.False(t, published.LogicStale())

	eventBus.AssertCalled(t, "Publish", mock.Anything, published.ID, mock.AnythingOfType("events.WorkflowPublished"))
}

func TestPublish_CompileFailureLeavesWorkflowUntouched(t *testing.T) {
	publishing, repo, _ := newTestPublishing(t)
	ctx := context.Background()

	created := createDraft(t, repo)

	// Break the graph: drop the false branch of the condition.
	broken := validGraph()
	broken.Edges = broken.Edges[:2]

	_, err := repo.UpdateGraph(ctx, created.ID, broken)
	require.NoError(t, err)

	_, err = publishing.Publish(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsCompileFailed(err))

	var compileFailed *CompileFailedError
	require.ErrorAs(t, err, &compileFailed)
	assert.NotEmpty(t, compileFailed.Errors)

	reloaded, err := repo.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, reloaded.Status)
	assert.False(t, reloaded.IsActive)
	assert.Nil(t, reloaded.LogicState)
}

func TestPauseAndResume(t *testing.T) {
	publishing, repo, eventBus := newTestPublishing(t)
	ctx := context.Background()

	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	created := createDraft(t, repo)

	_, err := publishing.Publish(ctx, created.ID)
	require.NoError(t, err)

	paused, err := publishing.Pause(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)
	assert.NotNil(t, paused.LogicState)

	resumed, err := publishing.Resume(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, resumed.Status)
}

func TestPause_RequiresActive(t *testing.T) {
	publishing, repo, _ := newTestPublishing(t)

	created := createDraft(t, repo)

	_, err := publishing.Pause(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestResume_RequiresPaused(t *testing.T) {
	publishing, repo, _ := newTestPublishing(t)

	created := createDraft(t, repo)

	_, err := publishing.Resume(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestResume_RecompilesEditedGraph(t *testing.T) {
	publishing, repo, eventBus := newTestPublishing(t)
	ctx := context.Background()

	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	created := createDraft(t, repo)

	_, err := publishing.Publish(ctx, created.ID)
	require.NoError(t, err)

	_, err = publishing.Pause(ctx, created.ID)
	require.NoError(t, err)

	// Edit while paused: the compiled state is now stale.
	edited, err := repo.UpdateGraph(ctx, created.ID, validGraph())
	require.NoError(t, err)
	assert.True(t, edited.LogicStale())

	resumed, err := publishing.Resume(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, resumed.Status)
	assert.False(t, resumed.LogicStale())
	assert.Equal(t, edited.Version, resumed.LogicState.Version)
}

func TestArchive_IsTerminal(t *testing.T) {
	publishing, repo, eventBus := newTestPublishing(t)
	ctx := context.Background()

	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	created := createDraft(t, repo)

	archived, err := publishing.Archive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusArchived, archived.Status)
	assert.False(t, archived.IsActive)

	_, err = publishing.Publish(ctx, created.ID)
	assert.ErrorIs(t, err, ErrWorkflowArchived)

	_, err = publishing.SetActive(ctx, created.ID, true)
	assert.ErrorIs(t, err, ErrWorkflowArchived)

	eventBus.AssertCalled(t, "Publish", mock.Anything, created.ID, mock.AnythingOfType("events.WorkflowArchived"))
}

func TestSetActive_TogglesKillSwitchWithoutStatusChange(t *testing.T) {
	publishing, repo, eventBus := newTestPublishing(t)
	ctx := context.Background()

	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	created := createDraft(t, repo)

	_, err := publishing.Publish(ctx, created.ID)
	require.NoError(t, err)

	disabled, err := publishing.SetActive(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, disabled.Status)
	assert.False(t, disabled.IsActive)
	assert.False(t, disabled.Dispatchable())

	enabled, err := publishing.SetActive(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.Dispatchable())
}

func TestValidate_ReturnsCompilerErrors(t *testing.T) {
	publishing, repo, _ := newTestPublishing(t)

	created := createDraft(t, repo)
	assert.Empty(t, publishing.Validate(created))

	created.VisualState.Edges = created.VisualState.Edges[:2]
	assert.NotEmpty(t, publishing.Validate(created))
}
