// Package triggers turns trigger matches into pending executions. Every
// trigger source (schedule, conditional, event, queue, manual) funnels through
// the Launcher so the launch semantics are identical regardless of origin.
package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/google/uuid"
)

// ErrWorkflowDisabled indicates a trigger matched a workflow that is not
// enabled. Disabled workflows never launch.
var ErrWorkflowDisabled = errors.New("workflow is disabled")

// EvaluationError wraps a failure while evaluating one workflow's trigger.
// Evaluation failures are logged and skipped; they never create an execution
// and never affect other workflows.
type EvaluationError struct {
	Source     string
	WorkflowID string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s trigger evaluation failed for workflow %s: %v", e.Source, e.WorkflowID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Launcher creates pending executions and announces them on the event bus.
type Launcher struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewLauncher(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Launcher {
	return &Launcher{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "trigger_launcher"),
	}
}

// Launch creates one pending execution for the workflow. Variables are the
// workflow defaults overlaid with the trigger payload (payload wins), and the
// graph is deep-copied onto the execution so later edits to the workflow never
// affect this run.
func (l *Launcher) Launch(ctx context.Context, workflow *models.Workflow, triggeredBy string, payload map[string]any) (*models.Execution, error) {
	if !workflow.Enabled {
		return nil, fmt.Errorf("cannot launch workflow %s: %w", workflow.ID, ErrWorkflowDisabled)
	}

	// Edits after enabling may have broken the graph; an invalid definition
	// never reaches the engine.
	if err := graph.Validate(workflow); err != nil {
		return nil, fmt.Errorf("cannot launch workflow %s: %w", workflow.ID, err)
	}

	variables := make(map[string]any, len(workflow.Variables)+len(payload))
	for k, v := range workflow.Variables {
		variables[k] = v
	}

	for k, v := range payload {
		variables[k] = v
	}

	nodes, edges := graph.Copy(workflow.Nodes, workflow.Edges)

	execution := &models.Execution{
		ID:            "exec-" + uuid.New().String()[:8],
		WorkflowID:    workflow.ID,
		Status:        models.ExecutionStatusPending,
		StartedAt:     time.Now().UTC(),
		Variables:     variables,
		SnapshotNodes: nodes,
		SnapshotEdges: edges,
	}

	if err := l.persistence.CreateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	now := execution.StartedAt
	workflow.ExecutionCount++
	workflow.LastExecutedAt = &now

	if err := l.persistence.SaveWorkflow(ctx, workflow); err != nil {
		l.logger.ErrorContext(ctx, "Failed to update workflow execution counters",
			"workflow_id", workflow.ID, "error", err)
	}

	err := l.publisher.Publish(ctx, workflow.ID, events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, workflow.ID),
		ExecutionID: execution.ID,
		TriggeredBy: triggeredBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish execution request: %w", err)
	}

	l.logger.InfoContext(ctx, "Execution launched",
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
		"triggered_by", triggeredBy)

	return execution, nil
}

// RunManual launches one execution of an enabled workflow on demand.
func (l *Launcher) RunManual(ctx context.Context, workflowID string, variables map[string]any) (*models.Execution, error) {
	workflow, err := l.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return l.Launch(ctx, workflow, "manual", variables)
}
