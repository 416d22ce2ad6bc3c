package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    "Test Workflow " + id,
		Enabled: false,
		Nodes: []*models.Node{
			{
				ID:      "trigger-1",
				Kind:    models.NodeKindTrigger,
				Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual},
			},
			{
				ID:     "action-1",
				Kind:   models.NodeKindAction,
				Action: &models.ActionSpec{Type: "send-email", Config: map[string]any{"to": "ops@example.com"}},
			},
			{ID: "end-1", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "action-1"},
			{ID: "e2", Source: "action-1", Target: "end-1"},
		},
		Variables: map[string]any{"env": "test"},
	}
}

func TestPersistence_WorkflowLifecycle(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	workflows, err := store.Workflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, workflows)

	require.NoError(t, store.SaveWorkflow(ctx, testWorkflow("wf-1")))
	require.NoError(t, store.SaveWorkflow(ctx, testWorkflow("wf-2")))

	loaded, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", loaded.ID)
	assert.Len(t, loaded.Nodes, 3)
	assert.Equal(t, "test", loaded.Variables["env"])
	assert.False(t, loaded.CreatedAt.IsZero())

	workflows, err = store.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	require.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))

	_, err = store.WorkflowByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	// Deleting again is a no-op.
	require.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))
}

func TestPersistence_WorkflowNotFound(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	_, err := store.WorkflowByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestPersistence_ExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusPending,
		StartedAt:  time.Now().UTC(),
		Variables:  map[string]any{"order_id": "A-100"},
		SnapshotNodes: []*models.Node{
			{ID: "end-1", Kind: models.NodeKindEnd},
		},
		SnapshotEdges: []*models.Edge{},
	}

	require.NoError(t, store.CreateExecution(ctx, execution))

	err := store.CreateExecution(ctx, execution)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyExists)

	execution.Status = models.ExecutionStatusRunning
	execution.CurrentNodeID = "end-1"
	require.NoError(t, store.UpdateExecution(ctx, execution))

	loaded, err := store.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
	assert.Equal(t, "end-1", loaded.CurrentNodeID)
	assert.Len(t, loaded.SnapshotNodes, 1)

	byWorkflow, err := store.ExecutionsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 1)

	byWorkflow, err = store.ExecutionsByWorkflow(ctx, "wf-other")
	require.NoError(t, err)
	assert.Empty(t, byWorkflow)
}

func TestPersistence_UpdateMissingExecution(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	err := store.UpdateExecution(context.Background(), &models.Execution{ID: "exec-ghost"})
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestPersistence_AppendLogPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	entries := []*models.ExecutionLog{
		{Timestamp: time.Now().UTC(), NodeID: "trigger-1", Action: "trigger", Status: models.LogStatusSuccess, Message: "execution started"},
		{Timestamp: time.Now().UTC(), NodeID: "action-1", Action: "send-email", Status: models.LogStatusSuccess, Data: map[string]any{"message_id": "m-1"}},
		{Timestamp: time.Now().UTC(), NodeID: "action-2", Action: "create-task", Status: models.LogStatusError, Message: "boom"},
	}

	for _, entry := range entries {
		require.NoError(t, store.AppendLog(ctx, "exec-1", entry))
	}

	logs, err := store.Logs(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, logs, 3)

	for i, entry := range entries {
		assert.Equal(t, entry.NodeID, logs[i].NodeID)
		assert.Equal(t, entry.Status, logs[i].Status)
	}

	// An execution with no entries yet has an empty trail, not an error.
	logs, err = store.Logs(ctx, "exec-never-logged")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestPersistence_DueWaiting(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	fixtures := []*models.Execution{
		{ID: "exec-due", WorkflowID: "wf-1", Status: models.ExecutionStatusWaiting, StartedAt: now, WaitUntil: &past},
		{ID: "exec-later", WorkflowID: "wf-1", Status: models.ExecutionStatusWaiting, StartedAt: now, WaitUntil: &future},
		{ID: "exec-expr", WorkflowID: "wf-1", Status: models.ExecutionStatusWaiting, StartedAt: now, WaitExpression: "{{approved}} == true"},
		{ID: "exec-running", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning, StartedAt: now},
	}

	for _, execution := range fixtures {
		require.NoError(t, store.CreateExecution(ctx, execution))
	}

	due, err := store.DueWaiting(ctx, now)
	require.NoError(t, err)

	ids := make([]string, 0, len(due))
	for _, execution := range due {
		ids = append(ids, execution.ID)
	}

	assert.ElementsMatch(t, []string{"exec-due", "exec-expr"}, ids)
}

func TestPersistence_HealthCheck(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	require.NoError(t, store.HealthCheck(context.Background()))

	missing := file.NewPersistence("/nonexistent/flowgrid-data")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
