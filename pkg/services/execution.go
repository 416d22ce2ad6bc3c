package services

import (
	"context"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// Execution is the application service for inspecting and controlling runs.
type Execution struct {
	persistence persistence.Persistence
}

func NewExecution(p persistence.Persistence) *Execution {
	return &Execution{persistence: p}
}

// ListByWorkflow returns a workflow's executions, most recent first. The
// workflow must exist; executions of deleted workflows are reachable by ID
// only.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	if _, err := e.persistence.WorkflowByID(ctx, workflowID); err != nil {
		return nil, err
	}

	executions, err := e.persistence.ExecutionsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// FetchByID retrieves a single execution.
func (e *Execution) FetchByID(ctx context.Context, executionID string) (*models.Execution, error) {
	return e.persistence.ExecutionByID(ctx, executionID)
}

// Logs returns an execution's audit trail in visitation order.
func (e *Execution) Logs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	if _, err := e.persistence.ExecutionByID(ctx, executionID); err != nil {
		return nil, err
	}

	logs, err := e.persistence.Logs(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution logs: %w", err)
	}

	return logs, nil
}

// RequestCancellation flags a running or waiting execution for cancellation.
// The engine observes the flag between nodes, so the currently dispatching
// action still finishes. Cancelling a pending execution takes effect before
// its first node.
func (e *Execution) RequestCancellation(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := e.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.Terminal() {
		return nil, fmt.Errorf("cannot cancel execution %s: %w", executionID, ErrExecutionFinished)
	}

	if execution.CancelRequested {
		return execution, nil
	}

	execution.CancelRequested = true

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to request cancellation: %w", err)
	}

	return execution, nil
}
