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
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
		id
	  , name
	  , description
	  , enabled
	  , nodes
	  , edges
	  , variables
	  , execution_count
	  , error_count
	  , last_executed_at
	  , created_at
	  , updated_at
`

// All returns every workflow, newest first.
func (r *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// ByID returns one workflow, or persistence.ErrWorkflowNotFound.
func (r *WorkflowRepository) ByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return workflow, nil
}

// Save upserts a workflow, generating an id when the caller left it empty.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		workflow.ID = "wf-" + uuid.New().String()[:8]
	}

	nodesJSON, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	edgesJSON, err := json.Marshal(workflow.Edges)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	variablesJSON, err := json.Marshal(workflow.Variables)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (
			id, name, description, enabled, nodes, edges, variables,
			execution_count, error_count, last_executed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			variables = EXCLUDED.variables,
			execution_count = EXCLUDED.execution_count,
			error_count = EXCLUDED.error_count,
			last_executed_at = EXCLUDED.last_executed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Enabled,
		nodesJSON,
		edgesJSON,
		variablesJSON,
		workflow.ExecutionCount,
		workflow.ErrorCount,
		nullTime(workflow.LastExecutedAt),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow. Deleting an absent workflow is not an error.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow       models.Workflow
		nodesJSON      []byte
		edgesJSON      []byte
		variablesJSON  []byte
		lastExecutedAt sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Enabled,
		&nodesJSON,
		&edgesJSON,
		&variablesJSON,
		&workflow.ExecutionCount,
		&workflow.ErrorCount,
		&lastExecutedAt,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &workflow.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	if lastExecutedAt.Valid {
		workflow.LastExecutedAt = &lastExecutedAt.Time
	}

	return &workflow, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}
