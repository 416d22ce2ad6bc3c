package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// ExecutionRepository handles execution records and their append-only logs.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
		id
	  , workflow_id
	  , status
	  , started_at
	  , completed_at
	  , current_node_id
	  , variables
	  , error_message
	  , cancel_requested
	  , wait_until
	  , wait_expression
	  , snapshot_nodes
	  , snapshot_edges
`

// Create inserts a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	query := `
		INSERT INTO executions (
			id, workflow_id, status, started_at, completed_at, current_node_id,
			variables, error_message, cancel_requested, wait_until,
			wait_expression, snapshot_nodes, snapshot_edges
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	return r.exec(ctx, "CreateExecution", execution, query)
}

// Update overwrites an existing execution record.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	query := `
		UPDATE executions SET
			workflow_id = $2,
			status = $3,
			started_at = $4,
			completed_at = $5,
			current_node_id = $6,
			variables = $7,
			error_message = $8,
			cancel_requested = $9,
			wait_until = $10,
			wait_expression = $11,
			snapshot_nodes = $12,
			snapshot_edges = $13
		WHERE id = $1
	`

	return r.exec(ctx, "UpdateExecution", execution, query)
}

func (r *ExecutionRepository) exec(ctx context.Context, op string, execution *models.Execution, query string) error {
	variablesJSON, err := json.Marshal(execution.Variables)
	if err != nil {
		return persistence.NewExecutionError(op, execution.ID, err)
	}

	nodesJSON, err := json.Marshal(execution.SnapshotNodes)
	if err != nil {
		return persistence.NewExecutionError(op, execution.ID, err)
	}

	edgesJSON, err := json.Marshal(execution.SnapshotEdges)
	if err != nil {
		return persistence.NewExecutionError(op, execution.ID, err)
	}

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		execution.StartedAt,
		nullTime(execution.CompletedAt),
		execution.CurrentNodeID,
		variablesJSON,
		execution.Error,
		execution.CancelRequested,
		nullTime(execution.WaitUntil),
		execution.WaitExpression,
		nodesJSON,
		edgesJSON,
	)
	if err != nil {
		return persistence.NewExecutionError(op, execution.ID, err)
	}

	if op == "UpdateExecution" {
		affected, err := result.RowsAffected()
		if err != nil {
			return persistence.NewExecutionError(op, execution.ID, err)
		}

		if affected == 0 {
			return persistence.NewExecutionError(op, execution.ID, persistence.ErrExecutionNotFound)
		}
	}

	return nil
}

// ByID returns one execution, or persistence.ErrExecutionNotFound.
func (r *ExecutionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return execution, nil
}

// ByWorkflow returns all executions of one workflow, newest first.
func (r *ExecutionRepository) ByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE workflow_id = $1 ORDER BY started_at DESC`

	return r.queryExecutions(ctx, query, workflowID)
}

// DueWaiting returns waiting executions whose deadline has passed or that wait
// on an expression.
func (r *ExecutionRepository) DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE status = $1 AND (wait_expression <> '' OR wait_until <= $2)
		ORDER BY started_at
	`

	return r.queryExecutions(ctx, query, models.ExecutionStatusWaiting, now)
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// AppendLog inserts one audit trail row. Rows are never updated afterwards.
func (r *ExecutionRepository) AppendLog(ctx context.Context, executionID string, entry *models.ExecutionLog) error {
	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		return persistence.NewExecutionError("AppendLog", executionID, err)
	}

	query := `
		INSERT INTO execution_logs (execution_id, logged_at, node_id, action, status, message, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		executionID,
		entry.Timestamp,
		entry.NodeID,
		entry.Action,
		entry.Status,
		entry.Message,
		dataJSON,
	)
	if err != nil {
		return persistence.NewExecutionError("AppendLog", executionID, err)
	}

	return nil
}

// Logs returns the execution's audit trail in append order.
func (r *ExecutionRepository) Logs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	query := `
		SELECT logged_at, node_id, action, status, message, data
		FROM execution_logs
		WHERE execution_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("Logs", executionID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	logs := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry    models.ExecutionLog
			dataJSON []byte
		)

		err := rows.Scan(&entry.Timestamp, &entry.NodeID, &entry.Action, &entry.Status, &entry.Message, &dataJSON)
		if err != nil {
			return nil, persistence.NewExecutionError("Logs", executionID, err)
		}

		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
				return nil, persistence.NewExecutionError("Logs", executionID, err)
			}
		}

		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewExecutionError("Logs", executionID, err)
	}

	return logs, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution     models.Execution
		completedAt   sql.NullTime
		waitUntil     sql.NullTime
		variablesJSON []byte
		nodesJSON     []byte
		edgesJSON     []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&execution.StartedAt,
		&completedAt,
		&execution.CurrentNodeID,
		&variablesJSON,
		&execution.Error,
		&execution.CancelRequested,
		&waitUntil,
		&execution.WaitExpression,
		&nodesJSON,
		&edgesJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &execution.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	if err := json.Unmarshal(nodesJSON, &execution.SnapshotNodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &execution.SnapshotEdges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot edges: %w", err)
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if waitUntil.Valid {
		execution.WaitUntil = &waitUntil.Time
	}

	return &execution, nil
}
