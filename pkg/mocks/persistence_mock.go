package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/coinflux/ruleflow/pkg/models"
)

// MockPersistence is a mock implementation of the persistence.Persistence
// interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) ListActiveWorkflowsByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Workflow, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockPersistence) RecordExecution(ctx context.Context, workflowID string, matched bool) error {
	args := m.Called(ctx, workflowID, matched)

	return args.Error(0)
}

func (m *MockPersistence) SaveExecutionReport(ctx context.Context, report *models.ExecutionReport) error {
	args := m.Called(ctx, report)

	return args.Error(0)
}

func (m *MockPersistence) ExecutionReports(ctx context.Context, entityType, entityID string) ([]*models.ExecutionReport, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionReport), args.Error(1)
}

func (m *MockPersistence) PruneExecutionReports(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)

	return args.Int(0), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
