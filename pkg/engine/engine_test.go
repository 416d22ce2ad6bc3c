package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/flowgrid/flowgrid/pkg/actions"
	"github.com/flowgrid/flowgrid/pkg/engine"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/persistence/file"
	"github.com/flowgrid/flowgrid/pkg/protocol"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// capturePublisher records lifecycle events the engine publishes.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.GetType())
	}

	return types
}

// probeFactory registers a test action that records its resolved config and
// either fails or returns a fixed output.
type probeFactory struct {
	mu      sync.Mutex
	calls   []map[string]any
	output  map[string]any
	failure error
}

func (*probeFactory) ID() string                 { return "probe" }
func (*probeFactory) Name() string               { return "Probe" }
func (*probeFactory) Description() string        { return "Test probe" }
func (*probeFactory) Schema() *models.JSONSchema { return nil }

func (f *probeFactory) Create(config map[string]any) (protocol.Action, error) {
	return &probeAction{factory: f, config: config}, nil
}

func (f *probeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

type probeAction struct {
	factory *probeFactory
	config  map[string]any
}

func (a *probeAction) Execute(_ context.Context, _ protocol.ActionInput, _ *slog.Logger) (map[string]any, error) {
	a.factory.mu.Lock()
	a.factory.calls = append(a.factory.calls, a.config)
	a.factory.mu.Unlock()

	return a.factory.output, a.factory.failure
}

type harness struct {
	engine    *engine.Engine
	store     persistence.Persistence
	publisher *capturePublisher
	probe     *probeFactory
}

func setupEngine(t *testing.T) *harness {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(testLogger())
	actions.RegisterDefaults(reg)

	probe := &probeFactory{output: map[string]any{"probe_ran": true}}
	reg.RegisterAction(probe)

	publisher := &capturePublisher{}

	return &harness{
		engine:    engine.New(store, registry.NewDispatcher(reg), publisher, testLogger()),
		store:     store,
		publisher: publisher,
		probe:     probe,
	}
}

// createExecution persists a workflow and a pending execution holding a frozen
// copy of the workflow's graph, the same shape the trigger launcher produces.
func createExecution(t *testing.T, store persistence.Persistence, workflow *models.Workflow, variables map[string]any) *models.Execution {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	nodes, edges := graph.Copy(workflow.Nodes, workflow.Edges)
	execution := &models.Execution{
		ID:            "exec-" + workflow.ID,
		WorkflowID:    workflow.ID,
		Status:        models.ExecutionStatusPending,
		StartedAt:     time.Now().UTC(),
		Variables:     variables,
		SnapshotNodes: nodes,
		SnapshotEdges: edges,
	}
	require.NoError(t, store.CreateExecution(ctx, execution))

	return execution
}

func triggerNode() *models.Node {
	return &models.Node{
		ID:      "trigger-1",
		Kind:    models.NodeKindTrigger,
		Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual},
	}
}

func linearWorkflow(actionConfig map[string]any, continueOnError bool) *models.Workflow {
	return &models.Workflow{
		ID:      "wf-linear",
		Name:    "Linear",
		Enabled: true,
		Nodes: []*models.Node{
			triggerNode(),
			{ID: "action-1", Kind: models.NodeKindAction, Action: &models.ActionSpec{
				Type:            "probe",
				Config:          actionConfig,
				ContinueOnError: continueOnError,
			}},
			{ID: "end-1", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "action-1"},
			{ID: "e2", Source: "action-1", Target: "end-1"},
		},
	}
}

func TestEngine_RunLinearWorkflow(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	workflow := linearWorkflow(map[string]any{"message": "hello {{user}}"}, false)
	execution := createExecution(t, h.store, workflow, map[string]any{"user": "ada"})

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, "end-1", stored.CurrentNodeID)

	// Action output is merged into the variable context.
	assert.Equal(t, true, stored.Variables["probe_ran"])

	// Placeholders in config are resolved before dispatch.
	require.Equal(t, 1, h.probe.callCount())
	assert.Equal(t, "hello ada", h.probe.calls[0]["message"])

	// The audit trail records executed work only: one entry per action plus
	// the end node. The trigger never logs.
	logs, err := h.store.Logs(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "action-1", logs[0].NodeID)
	assert.Equal(t, models.LogStatusSuccess, logs[0].Status)
	assert.Equal(t, "end-1", logs[1].NodeID)

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.ExecutionCompletedEvent,
	}, h.publisher.types())
}

func branchingWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:      "wf-branch",
		Name:    "Branching",
		Enabled: true,
		Nodes: []*models.Node{
			triggerNode(),
			{ID: "cond-1", Kind: models.NodeKindCondition, Condition: &models.ConditionSpec{
				Expression: `priority == "high"`,
			}},
			{ID: "action-1", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "probe"}},
			{ID: "end-1", Kind: models.NodeKindEnd},
			{ID: "end-2", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "cond-1"},
			{ID: "e2", Source: "cond-1", Target: "action-1", Branch: models.BranchTrue},
			{ID: "e3", Source: "cond-1", Target: "end-2", Branch: models.BranchFalse},
			{ID: "e4", Source: "action-1", Target: "end-1"},
		},
	}
}

func TestEngine_ConditionBranching(t *testing.T) {
	ctx := context.Background()

	t.Run("true branch", func(t *testing.T) {
		h := setupEngine(t)
		execution := createExecution(t, h.store, branchingWorkflow(), map[string]any{"priority": "high"})

		require.NoError(t, h.engine.Run(ctx, execution.ID))

		stored, err := h.store.ExecutionByID(ctx, execution.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
		assert.Equal(t, "end-1", stored.CurrentNodeID)
		assert.Equal(t, 1, h.probe.callCount())
	})

	t.Run("false branch skips the action", func(t *testing.T) {
		h := setupEngine(t)
		execution := createExecution(t, h.store, branchingWorkflow(), map[string]any{"priority": "low"})

		require.NoError(t, h.engine.Run(ctx, execution.ID))

		stored, err := h.store.ExecutionByID(ctx, execution.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
		assert.Equal(t, "end-2", stored.CurrentNodeID)
		assert.Equal(t, 0, h.probe.callCount())

		logs, err := h.store.Logs(ctx, execution.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "cond-1", logs[0].NodeID)
		assert.Equal(t, false, logs[0].Data["result"])
	})
}

func TestEngine_ActionFailureStopsExecution(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)
	h.probe.failure = errors.New("downstream unavailable")

	workflow := linearWorkflow(nil, false)
	execution := createExecution(t, h.store, workflow, nil)

	// Run returns nil: a failed execution must not crash the worker.
	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "downstream unavailable")
	require.NotNil(t, stored.CompletedAt)

	logs, err := h.store.Logs(ctx, execution.ID)
	require.NoError(t, err)
	var errorLogs int
	for _, entry := range logs {
		if entry.Status == models.LogStatusError {
			errorLogs++
		}
	}
	assert.Equal(t, 2, errorLogs) // the dispatch failure and the engine's failure entry

	assert.Contains(t, h.publisher.types(), events.ExecutionFailedEvent)

	// The owning workflow's error counter is bumped.
	updated, err := h.store.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ErrorCount)
}

func TestEngine_ContinueOnError(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)
	h.probe.failure = errors.New("downstream unavailable")

	execution := createExecution(t, h.store, linearWorkflow(nil, true), nil)

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)

	// The failure is still visible in the audit trail.
	logs, err := h.store.Logs(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogStatusError, logs[0].Status)
}

func suspensionWorkflow(actionType string, config map[string]any) *models.Workflow {
	return &models.Workflow{
		ID:      "wf-suspend",
		Name:    "Suspending",
		Enabled: true,
		Nodes: []*models.Node{
			triggerNode(),
			{ID: "wait-1", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: actionType, Config: config}},
			{ID: "action-1", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "probe"}},
			{ID: "end-1", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "wait-1"},
			{ID: "e2", Source: "wait-1", Target: "action-1"},
			{ID: "e3", Source: "action-1", Target: "end-1"},
		},
	}
}

func TestEngine_DelaySuspendsAndResumes(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	workflow := suspensionWorkflow(actions.TypeDelay, map[string]any{"duration": "1h"})
	execution := createExecution(t, h.store, workflow, nil)

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, stored.Status)
	assert.Equal(t, "wait-1", stored.CurrentNodeID)
	require.NotNil(t, stored.WaitUntil)
	assert.Equal(t, 0, h.probe.callCount())
	assert.Contains(t, h.publisher.types(), events.ExecutionWaitingEvent)

	// Resuming before the delay elapses keeps the execution parked.
	require.NoError(t, h.engine.Run(ctx, execution.ID))
	stored, err = h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, stored.Status)

	// Backdate the deadline and resume: the run continues past the delay
	// without re-running anything already logged.
	past := time.Now().UTC().Add(-time.Minute)
	stored.WaitUntil = &past
	require.NoError(t, h.store.UpdateExecution(ctx, stored))

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	final, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
	assert.Nil(t, final.WaitUntil)
	assert.Equal(t, 1, h.probe.callCount())

	logs, err := h.store.Logs(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3) // delay, probe, end
	assert.Equal(t, "wait-1", logs[0].NodeID)
}

func TestEngine_WaitConditionSuspendsUntilSatisfied(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	workflow := suspensionWorkflow(actions.TypeWaitCondition, map[string]any{"expression": "approved"})
	execution := createExecution(t, h.store, workflow, map[string]any{"approved": false})

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, stored.Status)
	assert.Equal(t, "approved", stored.WaitExpression)

	// Still false: stays waiting.
	require.NoError(t, h.engine.Run(ctx, execution.ID))
	stored, err = h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, stored.Status)

	stored.Variables["approved"] = true
	require.NoError(t, h.store.UpdateExecution(ctx, stored))

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	final, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
	assert.Empty(t, final.WaitExpression)
	assert.Equal(t, 1, h.probe.callCount())
}

func TestEngine_WaitConditionAlreadySatisfied(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	workflow := suspensionWorkflow(actions.TypeWaitCondition, map[string]any{"expression": "approved"})
	execution := createExecution(t, h.store, workflow, map[string]any{"approved": true})

	// A condition that already holds never parks the execution.
	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.NotContains(t, h.publisher.types(), events.ExecutionWaitingEvent)
}

func TestEngine_CancellationBetweenNodes(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	execution := createExecution(t, h.store, linearWorkflow(nil, false), nil)

	// Cancel before the worker picks the execution up.
	execution.CancelRequested = true
	require.NoError(t, h.store.UpdateExecution(ctx, execution))

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 0, h.probe.callCount())
	assert.Contains(t, h.publisher.types(), events.ExecutionCancelledEvent)
}

func TestEngine_CorruptSnapshotFailsOnlyThatExecution(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	workflow := linearWorkflow(nil, false)
	execution := createExecution(t, h.store, workflow, nil)

	// Sever the graph: the action node's outgoing edge points nowhere.
	stored, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	stored.SnapshotEdges[1].Target = "node-ghost"
	require.NoError(t, h.store.UpdateExecution(ctx, stored))

	require.NoError(t, h.engine.Run(ctx, execution.ID))

	final, err := h.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, final.Status)
	assert.Contains(t, final.Error, "node-ghost")
}

func TestEngine_TerminalExecutionIsSkipped(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)

	execution := createExecution(t, h.store, linearWorkflow(nil, false), nil)
	execution.Status = models.ExecutionStatusCompleted
	require.NoError(t, h.store.UpdateExecution(ctx, execution))

	// At-least-once delivery: a redelivered terminal execution is a no-op.
	require.NoError(t, h.engine.Run(ctx, execution.ID))
	assert.Equal(t, 0, h.probe.callCount())
	assert.Empty(t, h.publisher.types())
}
