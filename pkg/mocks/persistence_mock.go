package mocks

import (
	"context"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/stretchr/testify/mock"
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

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) CreateExecution(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockPersistence) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockPersistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockPersistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

func (m *MockPersistence) AppendLog(ctx context.Context, executionID string, entry *models.ExecutionLog) error {
	args := m.Called(ctx, executionID, entry)

	return args.Error(0)
}

func (m *MockPersistence) Logs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionLog), args.Error(1)
}

func (m *MockPersistence) DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
