package cmd

import (
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/actions"
	"github.com/flowgrid/flowgrid/pkg/registry"
)

// NewRegistry builds an action registry with every built-in action type.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	actions.RegisterDefaults(reg)

	return reg
}
