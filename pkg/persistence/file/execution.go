package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

func (p *Persistence) executionPath(id string) string {
	return filepath.Clean(path.Join(p.root, "executions", id+".json"))
}

func (p *Persistence) logPath(executionID string) string {
	return filepath.Clean(path.Join(p.root, "executions", executionID+".log.jsonl"))
}

// CreateExecution persists a new execution record. The id must be unused.
func (p *Persistence) CreateExecution(ctx context.Context, execution *models.Execution) error {
	if _, err := os.Stat(p.executionPath(execution.ID)); err == nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, persistence.ErrExecutionAlreadyExists)
	}

	return p.writeExecution(execution)
}

// UpdateExecution overwrites an existing execution record.
func (p *Persistence) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	if _, err := os.Stat(p.executionPath(execution.ID)); os.IsNotExist(err) {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return p.writeExecution(execution)
}

func (p *Persistence) writeExecution(execution *models.Execution) error {
	if err := os.MkdirAll(path.Join(p.root, "executions"), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return os.WriteFile(p.executionPath(execution.ID), data, 0600)
}

// ExecutionByID loads an execution from disk. A missing file maps to
// persistence.ErrExecutionNotFound.
func (p *Persistence) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	body, err := os.ReadFile(p.executionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	var execution models.Execution

	if err := json.Unmarshal(body, &execution); err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns all executions of one workflow, newest first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	all, err := p.executions(ctx)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

// DueWaiting returns waiting executions whose wait deadline has passed or
// that wait on an expression.
func (p *Persistence) DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	all, err := p.executions(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.Status != models.ExecutionStatusWaiting {
			continue
		}

		if execution.WaitExpression != "" || (execution.WaitUntil != nil && !execution.WaitUntil.After(now)) {
			due = append(due, execution)
		}
	}

	return due, nil
}

func (p *Persistence) executions(ctx context.Context) ([]*models.Execution, error) {
	ids, err := listIDs(path.Join(p.root, "executions"))
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := p.ExecutionByID(ctx, id)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// AppendLog appends one audit trail entry to the execution's log file. The
// entry is flushed before AppendLog returns so the trail survives a crash
// mid-run.
func (p *Persistence) AppendLog(_ context.Context, executionID string, entry *models.ExecutionLog) error {
	if err := os.MkdirAll(path.Join(p.root, "executions"), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return persistence.NewExecutionError("AppendLog", executionID, err)
	}

	file, err := os.OpenFile(p.logPath(executionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return persistence.NewExecutionError("AppendLog", executionID, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return persistence.NewExecutionError("AppendLog", executionID, err)
	}

	return file.Sync()
}

// Logs returns the execution's audit trail in append order. An execution that
// logged nothing yet has an empty trail.
func (p *Persistence) Logs(_ context.Context, executionID string) ([]*models.ExecutionLog, error) {
	file, err := os.Open(p.logPath(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ExecutionLog{}, nil
		}

		return nil, persistence.NewExecutionError("Logs", executionID, err)
	}
	defer func() { _ = file.Close() }()

	logs := make([]*models.ExecutionLog, 0)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var entry models.ExecutionLog

		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, persistence.NewExecutionError("Logs", executionID, err)
		}

		logs = append(logs, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, persistence.NewExecutionError("Logs", executionID, err)
	}

	return logs, nil
}
