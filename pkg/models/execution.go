package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal executions are never
// mutated again.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// Execution is one run of a workflow. It owns a mutable variable context and a
// frozen copy of the graph taken when the run was created, so concurrent edits
// to the workflow never affect runs already in flight.
type Execution struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	Status     ExecutionStatus `json:"status"`

	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CurrentNodeID string     `json:"current_node_id,omitempty"`

	Variables map[string]any `json:"variables,omitempty"`
	Error     string         `json:"error,omitempty"`

	// CancelRequested is observed by the engine between nodes, never
	// mid-dispatch.
	CancelRequested bool `json:"cancel_requested,omitempty"`

	// Suspension state for delay and wait-condition actions.
	WaitUntil      *time.Time `json:"wait_until,omitempty"`
	WaitExpression string     `json:"wait_expression,omitempty"`

	// Frozen graph copied from the workflow at creation time.
	SnapshotNodes []*Node `json:"snapshot_nodes"`
	SnapshotEdges []*Edge `json:"snapshot_edges"`
}

// LogStatus classifies a single audit trail entry.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
	LogStatusWarning LogStatus = "warning"
)

// ExecutionLog is one append-only audit trail entry. Entries are persisted
// incrementally in strict visitation order and never rewritten.
type ExecutionLog struct {
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"node_id"`
	Action    string         `json:"action"`
	Status    LogStatus      `json:"status"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}
