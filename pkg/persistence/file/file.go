// Package file provides file-based persistence for workflows and executions.
// It is meant for development and single-node setups; each record lives in its
// own JSON document and execution logs are appended to a JSON-lines file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A "file://" prefix is stripped so the same database URL flag can
// select the implementation.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) workflowPath(id string) string {
	return filepath.Clean(path.Join(p.root, "workflows", id+".json"))
}

// Workflows returns every stored workflow sorted by creation time.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := listIDs(path.Join(p.root, "workflows"))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := p.WorkflowByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// WorkflowByID loads a workflow from disk. A missing file maps to
// persistence.ErrWorkflowNotFound.
func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	body, err := os.ReadFile(p.workflowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return &workflow, nil
}

// SaveWorkflow writes a workflow document, stamping CreatedAt on first save
// and UpdatedAt on every save.
func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(path.Join(p.root, "workflows"), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return os.WriteFile(p.workflowPath(workflow.ID), data, 0600)
}

// DeleteWorkflow removes a workflow document. Deleting an absent workflow is
// not an error.
func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	err := os.Remove(p.workflowPath(id))
	if err != nil && !os.IsNotExist(err) {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	return nil
}

// listIDs returns the basenames of every *.json document under dir, without
// the extension. A missing directory means no records yet.
func listIDs(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
