// Package persistence provides the data storage abstraction layer for
// workflows, executions, and their audit trails.
package persistence

import (
	"context"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records and their append-only logs.
// Log entries are persisted one at a time as the engine visits nodes, so the
// audit trail survives a crash mid-run.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	UpdateExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	AppendLog(ctx context.Context, executionID string, entry *models.ExecutionLog) error
	Logs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error)

	// DueWaiting returns waiting executions whose wait_until has passed, or
	// that wait on an expression and must be re-evaluated.
	DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error)
}

type Persistence interface {
	WorkflowRepository
	ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
