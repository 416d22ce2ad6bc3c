// Package protocol defines the interfaces between the execution engine and
// the pluggable action implementations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// ActionInput is everything an action sees for one dispatch. Config arrives
// with every {{variable}} placeholder already resolved.
type ActionInput struct {
	ExecutionID string
	WorkflowID  string
	NodeID      string
	Config      map[string]any
	Variables   map[string]any
}

// Action performs one named side effect. The returned map is merged into the
// execution's variable context; returning an error marks the dispatch failed.
type Action interface {
	Execute(ctx context.Context, input ActionInput, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds actions of one type from validated configuration.
type ActionFactory interface {
	ID() string
	Name() string
	Description() string
	Schema() *models.JSONSchema
	Create(config map[string]any) (Action, error)
}

// Dispatcher is the engine-facing boundary for executing a named action. The
// engine never rolls dispatched actions back: they are external,
// non-transactional side effects.
type Dispatcher interface {
	Dispatch(ctx context.Context, actionType string, input ActionInput, logger *slog.Logger) (map[string]any, error)
}
