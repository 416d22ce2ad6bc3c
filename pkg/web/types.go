// Package web provides the HTTP surface for workflow and execution
// management.
package web

import "github.com/flowgrid/flowgrid/pkg/models"

// CreateWorkflowRequest is the body for creating a workflow draft. Nodes and
// edges are optional: an empty draft is legitimate work in progress.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Variables   map[string]any `json:"variables"`
	Nodes       []*models.Node `json:"nodes"`
	Edges       []*models.Edge `json:"edges"`
}

// UpdateWorkflowRequest is the body for replacing a workflow definition.
// Omitted fields keep their stored values.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string        `json:"description,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	Nodes       []*models.Node `json:"nodes,omitempty"`
	Edges       []*models.Edge `json:"edges,omitempty"`
}

// RunWorkflowRequest is the body for launching a manual execution. Variables
// overlay the workflow's defaults for this run only.
type RunWorkflowRequest struct {
	Variables map[string]any `json:"variables"`
}

// ImportWorkflowRequest wraps a portable graph document.
type ImportWorkflowRequest struct {
	Name     string `json:"name"`
	Document string `json:"document" validate:"required"`
}

// DeliverEventRequest is the body for delivering an external event into the
// trigger subsystem.
type DeliverEventRequest struct {
	Name    string         `json:"name"    validate:"required,min=1"`
	Payload map[string]any `json:"payload"`
	Source  string         `json:"source"`
}
