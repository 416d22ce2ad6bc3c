// Package registry provides action factory registration and schema-validated
// action dispatch.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds action factories keyed by action type and validates action
// configurations against each factory's JSON schema before instantiation.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]protocol.ActionFactory
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]protocol.ActionFactory),
		logger:    logger.With("module", "registry"),
	}
}

// RegisterAction makes an action type available for dispatch. Registering the
// same type twice replaces the previous factory.
func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
}

// CreateAction validates config against the factory's schema and instantiates
// the action.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	r.mu.RLock()
	factory, ok := r.factories[actionType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action type %q is not registered", actionType)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("invalid configuration for action type %q: %w", actionType, err)
	}

	return factory.Create(config)
}

// AvailableActions lists every registered action type with its schema, sorted
// by type for stable API output.
func (r *Registry) AvailableActions() []models.RegisteredAction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]models.RegisteredAction, 0, len(r.factories))

	for _, factory := range r.factories {
		actions = append(actions, models.RegisteredAction{
			Type:        factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Type < actions[j].Type })

	return actions
}

// HealthCheck reports whether the registry is usable for dispatch.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.factories) == 0 {
		return "No action types registered", false
	}

	return fmt.Sprintf("%d action types registered", len(r.factories)), true
}

func (r *Registry) validateConfig(factory protocol.ActionFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("configuration does not match schema: %v", messages)
	}

	return nil
}

// Dispatcher adapts the registry into the engine's ActionDispatcher boundary.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch creates the action for the given type from the resolved config and
// executes it. The caller owns the context deadline.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	actionType string,
	input protocol.ActionInput,
	logger *slog.Logger,
) (map[string]any, error) {
	action, err := d.registry.CreateAction(actionType, input.Config)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, input, logger)
}
