// Package events defines the event types exchanged between the trigger
// subsystem, the scheduler, and the execution workers.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every flowgrid event; consumers filter on the event_type
// message metadata.
const Topic = "flowgrid.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Dispatch events consumed by workers.
	ExecutionRequestedEvent EventType = "execution.requested"
	ExecutionResumeEvent    EventType = "execution.resume"

	// Lifecycle notifications emitted by the engine.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	ExecutionWaitingEvent   EventType = "execution.waiting"

	// External event delivery into the trigger subsystem.
	ExternalEventReceivedEvent EventType = "external.event.received"
)

type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	WorkerID   string    `json:"worker_id,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// ExecutionRequested asks a worker to run a freshly created pending execution.
type ExecutionRequested struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	TriggeredBy string `json:"triggered_by"`
}

func (e ExecutionRequested) GetType() EventType { return ExecutionRequestedEvent }

// ExecutionResume asks a worker to continue a waiting execution whose delay
// elapsed or wait condition became true.
type ExecutionResume struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionResume) GetType() EventType { return ExecutionResumeEvent }

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type ExecutionWaiting struct {
	BaseEvent

	ExecutionID string     `json:"execution_id"`
	NodeID      string     `json:"node_id"`
	WaitUntil   *time.Time `json:"wait_until,omitempty"`
	Expression  string     `json:"expression,omitempty"`
}

func (e ExecutionWaiting) GetType() EventType { return ExecutionWaitingEvent }

// ExternalEventReceived is a (name, payload) delivery from an outside system,
// matched by the trigger subsystem against event-based workflow triggers.
type ExternalEventReceived struct {
	BaseEvent

	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
	Source  string         `json:"source,omitempty"`
}

func (e ExternalEventReceived) GetType() EventType { return ExternalEventReceivedEvent }
