// Package engine interprets execution snapshots. One execution is always
// advanced by a single goroutine; concurrency happens across executions via
// the worker pool.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowgrid/flowgrid/pkg/actions"
	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/expr"
	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/otelhelper"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/protocol"
	"github.com/flowgrid/flowgrid/pkg/template"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultActionTimeout = 30 * time.Second

// Engine runs one execution at a time from its frozen snapshot. Any fault
// inside a run (corrupt snapshot, missing node, action panic caught upstream)
// marks only that execution failed; Run never brings the worker down with it.
type Engine struct {
	persistence persistence.Persistence
	dispatcher  protocol.Dispatcher
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

func New(p persistence.Persistence, dispatcher protocol.Dispatcher, publisher eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		dispatcher:  dispatcher,
		publisher:   publisher,
		logger:      logger.With("module", "engine"),
		tracer:      otel.Tracer("flowgrid-engine"),
	}
}

// Run advances the execution until it completes, fails, cancels, or suspends.
// It handles both fresh (pending) and resumed (waiting) executions; delivery
// is at-least-once, so runs that already reached a terminal state are skipped.
func (e *Engine) Run(ctx context.Context, executionID string) error {
	execution, err := e.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
	)
	defer span.End()

	snapshot := graph.NewSnapshot(execution.SnapshotNodes, execution.SnapshotEdges)

	if execution.CancelRequested && !execution.Status.Terminal() {
		return e.cancel(ctx, logger, execution, execution.CurrentNodeID)
	}

	var currentID string

	switch execution.Status {
	case models.ExecutionStatusPending:
		currentID, err = e.start(ctx, logger, execution, snapshot)
		if err != nil {
			return e.fail(ctx, logger, execution, "", err)
		}
	case models.ExecutionStatusWaiting:
		currentID, err = e.resume(ctx, logger, execution, snapshot)
		if err != nil {
			return e.fail(ctx, logger, execution, execution.CurrentNodeID, err)
		}

		if currentID == "" {
			// Wait not satisfied yet; stay parked.
			return nil
		}
	default:
		logger.InfoContext(ctx, "Execution is not runnable, skipping", "status", execution.Status)

		return nil
	}

	return e.loop(ctx, logger, execution, snapshot, currentID)
}

// start transitions a pending execution to running and returns the entry node.
// The trigger node itself leaves no audit entry: the log records executed
// work, and the start is already carried by the execution status and the
// started event.
func (e *Engine) start(ctx context.Context, logger *slog.Logger, execution *models.Execution, snapshot *graph.Snapshot) (string, error) {
	entryID, err := snapshot.EntryNodeID()
	if err != nil {
		return "", err
	}

	execution.Status = models.ExecutionStatusRunning
	execution.CurrentNodeID = entryID

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		return "", err
	}

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
	})

	logger.InfoContext(ctx, "Execution started", "entry_node", entryID)

	return entryID, nil
}

// resume checks whether a waiting execution's wait is satisfied. It returns
// the node to continue from, or "" when the execution should keep waiting.
func (e *Engine) resume(ctx context.Context, logger *slog.Logger, execution *models.Execution, snapshot *graph.Snapshot) (string, error) {
	now := time.Now().UTC()

	if execution.WaitUntil != nil && execution.WaitUntil.After(now) {
		return "", nil
	}

	if execution.WaitExpression != "" {
		satisfied, err := expr.Evaluate(execution.WaitExpression, execution.Variables)
		if err != nil {
			return "", fmt.Errorf("wait condition evaluation failed: %w", err)
		}

		if !satisfied {
			return "", nil
		}
	}

	// The suspension node already logged success when it parked the
	// execution; continue from its successor.
	nextID, err := snapshot.Successor(execution.CurrentNodeID)
	if err != nil {
		return "", err
	}

	execution.Status = models.ExecutionStatusRunning
	execution.WaitUntil = nil
	execution.WaitExpression = ""
	execution.CurrentNodeID = nextID

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		return "", err
	}

	logger.InfoContext(ctx, "Execution resumed", "node_id", nextID)

	return nextID, nil
}

// loop is the interpreter: one node per iteration, cancellation checked
// between nodes, progress persisted after every transition.
func (e *Engine) loop(ctx context.Context, logger *slog.Logger, execution *models.Execution, snapshot *graph.Snapshot, currentID string) error {
	for {
		cancelled, err := e.cancellationRequested(ctx, execution)
		if err != nil {
			return e.fail(ctx, logger, execution, currentID, err)
		}

		if cancelled {
			return e.cancel(ctx, logger, execution, currentID)
		}

		node, err := snapshot.Node(currentID)
		if err != nil {
			return e.fail(ctx, logger, execution, currentID, err)
		}

		var nextID string

		switch node.Kind {
		case models.NodeKindEnd:
			return e.complete(ctx, logger, execution, node)

		case models.NodeKindCondition:
			nextID, err = e.evaluateCondition(ctx, logger, execution, snapshot, node)

		case models.NodeKindAction:
			var suspended bool

			nextID, suspended, err = e.runAction(ctx, logger, execution, snapshot, node)
			if suspended {
				return nil
			}

		default:
			err = fmt.Errorf("unexpected %s node %s mid-execution", node.Kind, node.ID)
		}

		if err != nil {
			return e.fail(ctx, logger, execution, currentID, err)
		}

		currentID = nextID
		execution.CurrentNodeID = currentID

		if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
			return e.fail(ctx, logger, execution, currentID, err)
		}
	}
}

// cancellationRequested re-reads the cancel flag from persistence so a cancel
// issued through the API is observed between nodes, never mid-dispatch.
func (e *Engine) cancellationRequested(ctx context.Context, execution *models.Execution) (bool, error) {
	if ctx.Err() != nil {
		return true, nil
	}

	fresh, err := e.persistence.ExecutionByID(ctx, execution.ID)
	if err != nil {
		return false, err
	}

	execution.CancelRequested = fresh.CancelRequested

	return fresh.CancelRequested, nil
}

func (e *Engine) evaluateCondition(ctx context.Context, logger *slog.Logger, execution *models.Execution, snapshot *graph.Snapshot, node *models.Node) (string, error) {
	if node.Condition == nil {
		return "", fmt.Errorf("condition node %s has no expression", node.ID)
	}

	decision, err := expr.Evaluate(node.Condition.Expression, execution.Variables)
	if err != nil {
		return "", fmt.Errorf("condition evaluation failed at node %s: %w", node.ID, err)
	}

	e.appendLog(ctx, logger, execution, &models.ExecutionLog{
		Timestamp: time.Now().UTC(),
		NodeID:    node.ID,
		Action:    "condition",
		Status:    models.LogStatusSuccess,
		Message:   fmt.Sprintf("condition evaluated to %t", decision),
		Data: map[string]any{
			"expression": node.Condition.Expression,
			"result":     decision,
		},
	})

	return snapshot.BranchTarget(node.ID, decision)
}

// runAction dispatches one action node. The suspended return is true when the
// node parked the execution (delay / wait-condition) and the loop must stop.
func (e *Engine) runAction(ctx context.Context, logger *slog.Logger, execution *models.Execution, snapshot *graph.Snapshot, node *models.Node) (nextID string, suspended bool, err error) {
	if node.Action == nil {
		return "", false, fmt.Errorf("action node %s has no action spec", node.ID)
	}

	config := template.RenderConfig(node.Action.Config, execution.Variables)

	switch node.Action.Type {
	case actions.TypeDelay:
		suspended, err = e.suspendForDelay(ctx, logger, execution, node, config)

		return "", suspended, err
	case actions.TypeWaitCondition:
		return e.suspendForCondition(ctx, logger, execution, snapshot, node, config)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "action.dispatch",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.ActionTypeKey, node.Action.Type),
	)
	defer span.End()

	timeout := defaultActionTimeout
	if node.Action.TimeoutSeconds > 0 {
		timeout = time.Duration(node.Action.TimeoutSeconds) * time.Second
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input := protocol.ActionInput{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		NodeID:      node.ID,
		Config:      config,
		Variables:   execution.Variables,
	}

	output, dispatchErr := e.dispatcher.Dispatch(dispatchCtx, node.Action.Type, input, logger)
	if dispatchErr != nil {
		otelhelper.SetError(span, dispatchErr)

		e.appendLog(ctx, logger, execution, &models.ExecutionLog{
			Timestamp: time.Now().UTC(),
			NodeID:    node.ID,
			Action:    node.Action.Type,
			Status:    models.LogStatusError,
			Message:   dispatchErr.Error(),
		})

		if !node.Action.ContinueOnError {
			return "", false, fmt.Errorf("action %s failed at node %s: %w", node.Action.Type, node.ID, dispatchErr)
		}

		logger.WarnContext(ctx, "Action failed, continuing on error",
			"node_id", node.ID, "action_type", node.Action.Type, "error", dispatchErr)
	} else {
		if execution.Variables == nil {
			execution.Variables = make(map[string]any, len(output))
		}

		for k, v := range output {
			execution.Variables[k] = v
		}

		e.appendLog(ctx, logger, execution, &models.ExecutionLog{
			Timestamp: time.Now().UTC(),
			NodeID:    node.ID,
			Action:    node.Action.Type,
			Status:    models.LogStatusSuccess,
			Message:   "action completed",
			Data:      output,
		})
	}

	nextID, err = snapshot.Successor(node.ID)

	return nextID, false, err
}

func (e *Engine) suspendForDelay(ctx context.Context, logger *slog.Logger, execution *models.Execution, node *models.Node, config map[string]any) (bool, error) {
	duration, err := actions.ParseDelay(config)
	if err != nil {
		return false, fmt.Errorf("invalid delay at node %s: %w", node.ID, err)
	}

	waitUntil := time.Now().UTC().Add(duration)

	e.appendLog(ctx, logger, execution, &models.ExecutionLog{
		Timestamp: time.Now().UTC(),
		NodeID:    node.ID,
		Action:    actions.TypeDelay,
		Status:    models.LogStatusSuccess,
		Message:   fmt.Sprintf("execution suspended for %s", duration),
		Data:      map[string]any{"wait_until": waitUntil.Format(time.RFC3339)},
	})

	return true, e.park(ctx, logger, execution, node.ID, &waitUntil, "")
}

// suspendForCondition parks the execution unless the wait expression is
// already satisfied, in which case the run falls straight through.
func (e *Engine) suspendForCondition(ctx context.Context, logger *slog.Logger, execution *models.Execution, snapshot *graph.Snapshot, node *models.Node, config map[string]any) (string, bool, error) {
	expression, err := actions.ParseWaitCondition(config)
	if err != nil {
		return "", false, fmt.Errorf("invalid wait-condition at node %s: %w", node.ID, err)
	}

	satisfied, err := expr.Evaluate(expression, execution.Variables)
	if err != nil {
		return "", false, fmt.Errorf("wait-condition evaluation failed at node %s: %w", node.ID, err)
	}

	if satisfied {
		e.appendLog(ctx, logger, execution, &models.ExecutionLog{
			Timestamp: time.Now().UTC(),
			NodeID:    node.ID,
			Action:    actions.TypeWaitCondition,
			Status:    models.LogStatusSuccess,
			Message:   "wait condition already satisfied",
			Data:      map[string]any{"expression": expression},
		})

		nextID, err := snapshot.Successor(node.ID)

		return nextID, false, err
	}

	e.appendLog(ctx, logger, execution, &models.ExecutionLog{
		Timestamp: time.Now().UTC(),
		NodeID:    node.ID,
		Action:    actions.TypeWaitCondition,
		Status:    models.LogStatusSuccess,
		Message:   "execution suspended until condition holds",
		Data:      map[string]any{"expression": expression},
	})

	return "", true, e.park(ctx, logger, execution, node.ID, nil, expression)
}

func (e *Engine) park(ctx context.Context, logger *slog.Logger, execution *models.Execution, nodeID string, waitUntil *time.Time, expression string) error {
	execution.Status = models.ExecutionStatusWaiting
	execution.CurrentNodeID = nodeID
	execution.WaitUntil = waitUntil
	execution.WaitExpression = expression

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		return err
	}

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionWaiting{
		BaseEvent:   events.NewBaseEvent(events.ExecutionWaitingEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		WaitUntil:   waitUntil,
		Expression:  expression,
	})

	logger.InfoContext(ctx, "Execution suspended", "node_id", nodeID)

	return nil
}

func (e *Engine) complete(ctx context.Context, logger *slog.Logger, execution *models.Execution, node *models.Node) error {
	now := time.Now().UTC()

	e.appendLog(ctx, logger, execution, &models.ExecutionLog{
		Timestamp: now,
		NodeID:    node.ID,
		Action:    "end",
		Status:    models.LogStatusSuccess,
		Message:   "execution completed",
	})

	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.CurrentNodeID = node.ID

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		return err
	}

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Duration:    now.Sub(execution.StartedAt),
	})

	logger.InfoContext(ctx, "Execution completed", "duration", now.Sub(execution.StartedAt))

	return nil
}

// fail marks the execution failed and keeps the worker alive: the returned
// error is always nil so the bus acknowledges the message.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, execution *models.Execution, nodeID string, cause error) error {
	now := time.Now().UTC()

	e.appendLog(ctx, logger, execution, &models.ExecutionLog{
		Timestamp: now,
		NodeID:    nodeID,
		Action:    "engine",
		Status:    models.LogStatusError,
		Message:   cause.Error(),
	})

	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()
	execution.CompletedAt = &now

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		logger.ErrorContext(ctx, "Failed to persist failed execution", "error", err)
	}

	e.bumpErrorCount(ctx, logger, execution.WorkflowID)

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Error:       cause.Error(),
	})

	logger.ErrorContext(ctx, "Execution failed", "node_id", nodeID, "error", cause)

	return nil
}

func (e *Engine) cancel(ctx context.Context, logger *slog.Logger, execution *models.Execution, nodeID string) error {
	now := time.Now().UTC()

	e.appendLog(ctx, logger, execution, &models.ExecutionLog{
		Timestamp: now,
		NodeID:    nodeID,
		Action:    "engine",
		Status:    models.LogStatusWarning,
		Message:   "execution cancelled",
	})

	execution.Status = models.ExecutionStatusCancelled
	execution.CompletedAt = &now

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		logger.ErrorContext(ctx, "Failed to persist cancelled execution", "error", err)
	}

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
	})

	logger.InfoContext(ctx, "Execution cancelled", "node_id", nodeID)

	return nil
}

func (e *Engine) bumpErrorCount(ctx context.Context, logger *slog.Logger, workflowID string) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		logger.WarnContext(ctx, "Could not update workflow error count", "error", err)

		return
	}

	workflow.ErrorCount++

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		logger.WarnContext(ctx, "Could not persist workflow error count", "error", err)
	}
}

// appendLog writes one audit entry. Log persistence failures are reported but
// never abort the run.
func (e *Engine) appendLog(ctx context.Context, logger *slog.Logger, execution *models.Execution, entry *models.ExecutionLog) {
	if err := e.persistence.AppendLog(ctx, execution.ID, entry); err != nil {
		logger.ErrorContext(ctx, "Failed to append execution log", "node_id", entry.NodeID, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, key string, event events.Event) {
	if err := e.publisher.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}
