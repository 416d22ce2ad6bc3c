package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowgrid/flowgrid/pkg/actions"
	"github.com/flowgrid/flowgrid/pkg/channels/gochannel"
	"github.com/flowgrid/flowgrid/pkg/engine"
	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence/file"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/flowgrid/flowgrid/pkg/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWorker_ProcessesDispatchFromBus wires the launcher, the bus, and the
// worker together: a launched execution must come out completed without
// anyone calling the engine directly.
func TestWorker_ProcessesDispatchFromBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := file.NewPersistence(t.TempDir())

	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	reg := registry.NewRegistry(testLogger())
	actions.RegisterDefaults(reg)

	eng := engine.New(store, registry.NewDispatcher(reg), bus, testLogger())
	worker := engine.NewWorker("worker-test", eng, bus, testLogger(), 2)

	completed := make(chan *events.ExecutionCompleted, 1)
	bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		if done, ok := event.(*events.ExecutionCompleted); ok {
			completed <- done
		}

		return nil
	})

	require.NoError(t, worker.Start(ctx))

	workflow := &models.Workflow{
		ID:      "wf-bus",
		Name:    "Bus Driven",
		Enabled: true,
		Nodes: []*models.Node{
			{ID: "trigger-1", Kind: models.NodeKindTrigger, Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual}},
			{ID: "end-1", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "end-1"},
		},
	}
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	launcher := triggers.NewLauncher(store, bus, testLogger())
	execution, err := launcher.RunManual(ctx, "wf-bus", nil)
	require.NoError(t, err)

	select {
	case done := <-completed:
		assert.Equal(t, execution.ID, done.ExecutionID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for execution to complete")
	}

	stored, err := store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)

	cancel()
	worker.Wait()
}
