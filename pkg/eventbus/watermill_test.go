package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowgrid/flowgrid/pkg/channels/gochannel"
	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	received := make(chan *events.ExecutionRequested, 1)

	bus.Handle(events.ExecutionRequestedEvent, func(_ context.Context, event any) error {
		requested, ok := event.(*events.ExecutionRequested)
		require.True(t, ok)
		received <- requested

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	published := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, "wf-1"),
		ExecutionID: "exec-1",
		TriggeredBy: "manual",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	select {
	case event := <-received:
		assert.Equal(t, "exec-1", event.ExecutionID)
		assert.Equal(t, "wf-1", event.WorkflowID)
		assert.Equal(t, "manual", event.TriggeredBy)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	handled := make(chan struct{}, 1)

	bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, _ any) error {
		handled <- struct{}{}

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this type; it must be acked and dropped.
	require.NoError(t, bus.Publish(ctx, "wf-1", events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}))

	require.NoError(t, bus.Publish(ctx, "wf-1", events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handled event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
