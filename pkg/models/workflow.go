// Package models defines the core domain models for node-based workflow automation.
package models

import "time"

// Workflow represents a named automation definition: a directed graph of
// trigger/action/condition/end nodes plus the default variable context seeded
// into every run.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Enabled     bool           `json:"enabled"`
	Nodes       []*Node        `json:"nodes"`
	Edges       []*Edge        `json:"edges"`
	Variables   map[string]any `json:"variables,omitempty"`

	ExecutionCount int64      `json:"execution_count"`
	ErrorCount     int64      `json:"error_count"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerNode returns the workflow's trigger node, or nil when the definition
// has none. Definitions with zero or multiple triggers are rejected by the
// graph validator before they can be enabled.
func (w *Workflow) TriggerNode() *Node {
	for _, node := range w.Nodes {
		if node.Kind == NodeKindTrigger {
			return node
		}
	}

	return nil
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EdgesFrom returns all edges leaving the given node.
func (w *Workflow) EdgesFrom(nodeID string) []*Edge {
	edges := make([]*Edge, 0)

	for _, edge := range w.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}
