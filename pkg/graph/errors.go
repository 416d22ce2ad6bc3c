// Package graph provides static validation and frozen snapshots of workflow
// definitions.
package graph

import "fmt"

// ErrorKind identifies a structural defect in a workflow definition.
type ErrorKind string

const (
	ErrMissingTrigger   ErrorKind = "missing_trigger"
	ErrMultipleTriggers ErrorKind = "multiple_triggers"
	ErrDanglingEdge     ErrorKind = "dangling_edge"
	ErrIncompleteBranch ErrorKind = "incomplete_branch"
	ErrDeadEnd          ErrorKind = "dead_end"
	ErrUnreachableNode  ErrorKind = "unreachable_node"
	ErrCyclicGraph      ErrorKind = "cyclic_graph"
)

// Error is a structural validation failure. It is raised only at validate or
// enable time, never during execution.
type Error struct {
	Kind   ErrorKind
	NodeID string
	EdgeID string
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("invalid workflow graph: %s", e.Kind)

	switch {
	case e.NodeID != "":
		msg += fmt.Sprintf(" (node %s)", e.NodeID)
	case e.EdgeID != "":
		msg += fmt.Sprintf(" (edge %s)", e.EdgeID)
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

// Is matches two graph errors on Kind, so callers can compare against
// &graph.Error{Kind: ...} with errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Kind == other.Kind
}
