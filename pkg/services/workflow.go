package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/google/uuid"
)

// Workflow is the application service for workflow definitions. Drafts may be
// structurally invalid; validation gates only enabling and manual runs.
type Workflow struct {
	persistence persistence.Persistence
}

func NewWorkflow(p persistence.Persistence) *Workflow {
	return &Workflow{persistence: p}
}

// HealthCheck reports whether the persistence layer is reachable.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every workflow definition.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Create persists a new workflow as a disabled draft. The graph is not
// validated here: incomplete definitions are legitimate work in progress.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if strings.TrimSpace(workflow.Name) == "" {
		return nil, NewValidationError("Create", "NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	workflow.ID = "wf-" + uuid.New().String()[:8]
	workflow.Enabled = false
	workflow.ExecutionCount = 0
	workflow.ErrorCount = 0
	workflow.LastExecutedAt = nil

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces an existing workflow's definition. Counters, the enabled
// flag, and creation time are carried over from the stored record; an enabled
// workflow keeps running its old frozen snapshots while the new graph applies
// to future launches.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if strings.TrimSpace(workflow.Name) == "" {
		return nil, NewValidationError("Update", "NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	existing, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.Enabled = existing.Enabled
	workflow.CreatedAt = existing.CreatedAt
	workflow.ExecutionCount = existing.ExecutionCount
	workflow.ErrorCount = existing.ErrorCount
	workflow.LastExecutedAt = existing.LastExecutedAt

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow definition. Executions and their logs are kept
// for audit.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.persistence.WorkflowByID(ctx, workflowID); err != nil {
		return err
	}

	if err := w.persistence.DeleteWorkflow(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Validate runs the static graph checks without touching persistence.
func (w *Workflow) Validate(ctx context.Context, workflowID string) error {
	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	return graph.Validate(workflow)
}

// Enable validates the workflow and, only when it passes, marks it enabled.
// An invalid graph leaves the stored record untouched.
func (w *Workflow) Enable(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if err := graph.Validate(workflow); err != nil {
		return nil, err
	}

	workflow.Enabled = true

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to enable workflow: %w", err)
	}

	return workflow, nil
}

// Disable marks the workflow disabled. In-flight executions keep running on
// their frozen snapshots; only new launches stop.
func (w *Workflow) Disable(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.Enabled = false

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to disable workflow: %w", err)
	}

	return workflow, nil
}

// Export serializes the workflow's graph into the portable document format.
func (w *Workflow) Export(ctx context.Context, workflowID string) ([]byte, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return graph.Export(workflow.Nodes, workflow.Edges)
}

// Import creates a new disabled draft from a portable graph document.
func (w *Workflow) Import(ctx context.Context, name string, document []byte) (*models.Workflow, error) {
	nodes, edges, err := graph.Import(document)
	if err != nil {
		return nil, NewValidationError("Import", "INVALID_DOCUMENT", err.Error(), ErrInvalidGraphDocument)
	}

	if strings.TrimSpace(name) == "" {
		name = "Imported workflow " + time.Now().UTC().Format("2006-01-02 15:04")
	}

	return w.Create(ctx, &models.Workflow{
		Name:  name,
		Nodes: nodes,
		Edges: edges,
	})
}
