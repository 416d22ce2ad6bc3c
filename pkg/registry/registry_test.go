package registry_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoFactory struct{}

func (*echoFactory) ID() string          { return "echo" }
func (*echoFactory) Name() string        { return "Echo" }
func (*echoFactory) Description() string { return "Returns its message" }

func (*echoFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"message": {Type: "string"},
		},
		Required: []string{"message"},
	}
}

func (*echoFactory) Create(config map[string]any) (protocol.Action, error) {
	return &echoAction{message: config["message"].(string)}, nil
}

type echoAction struct {
	message string
}

func (a *echoAction) Execute(_ context.Context, _ protocol.ActionInput, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{"echo": a.message}, nil
}

func newTestRegistry() *registry.Registry {
	r := registry.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.RegisterAction(&echoFactory{})

	return r
}

func TestRegistry_CreateAction(t *testing.T) {
	r := newTestRegistry()

	action, err := r.CreateAction("echo", map[string]any{"message": "hello"})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), protocol.ActionInput{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "hello", output["echo"])
}

func TestRegistry_CreateAction_UnknownType(t *testing.T) {
	r := newTestRegistry()

	_, err := r.CreateAction("teleport", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_CreateAction_SchemaViolations(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing required field", map[string]any{}},
		{"wrong type", map[string]any{"message": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateAction("echo", tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestRegistry_AvailableActions(t *testing.T) {
	r := newTestRegistry()

	actions := r.AvailableActions()
	require.Len(t, actions, 1)
	assert.Equal(t, "echo", actions[0].Type)
	assert.NotNil(t, actions[0].Schema)
}

func TestDispatcher_Dispatch(t *testing.T) {
	dispatcher := registry.NewDispatcher(newTestRegistry())

	output, err := dispatcher.Dispatch(
		context.Background(),
		"echo",
		protocol.ActionInput{Config: map[string]any{"message": "dispatched"}},
		slog.Default(),
	)
	require.NoError(t, err)
	assert.Equal(t, "dispatched", output["echo"])
}
