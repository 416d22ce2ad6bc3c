// Package event matches named external events against event-based triggers.
package event

import (
	"context"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/expr"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/triggers"
)

// WorkflowLister is the slice of the persistence layer the matcher needs.
type WorkflowLister interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
}

// Launcher starts executions for matched workflows.
type Launcher interface {
	Launch(ctx context.Context, workflow *models.Workflow, triggeredBy string, payload map[string]any) (*models.Execution, error)
}

// Matcher fans one external event out to every enabled workflow whose
// event-based trigger listens for that name and whose optional filter
// expression passes against the payload.
type Matcher struct {
	workflows WorkflowLister
	launcher  Launcher
	logger    *slog.Logger
}

func NewMatcher(workflows WorkflowLister, launcher Launcher, logger *slog.Logger) *Matcher {
	return &Matcher{
		workflows: workflows,
		launcher:  launcher,
		logger:    logger.With("module", "event_matcher"),
	}
}

// Register wires the matcher to the event bus so externally ingested events
// reach it. Must be called before the bus subscription starts.
func (m *Matcher) Register(bus eventbus.EventSubscriber) {
	bus.Handle(events.ExternalEventReceivedEvent, func(ctx context.Context, event any) error {
		received, ok := event.(*events.ExternalEventReceived)
		if !ok {
			return nil
		}

		_, err := m.Deliver(ctx, received.Name, received.Payload)

		return err
	})
}

// Deliver matches one named event and launches an execution per matching
// workflow, each seeded with the event payload. It returns the executions
// launched. A workflow whose filter fails to evaluate is skipped.
func (m *Matcher) Deliver(ctx context.Context, name string, payload map[string]any) ([]*models.Execution, error) {
	workflows, err := m.workflows.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	launched := make([]*models.Execution, 0)

	for _, workflow := range workflows {
		trigger := workflow.TriggerNode()
		if !workflow.Enabled || trigger == nil || trigger.Trigger == nil {
			continue
		}

		if trigger.Trigger.Type != models.TriggerTypeEvent || trigger.Trigger.EventName != name {
			continue
		}

		if filter := trigger.Trigger.EventFilter; filter != "" {
			matched, err := expr.Evaluate(filter, payload)
			if err != nil {
				evalErr := &triggers.EvaluationError{Source: "event", WorkflowID: workflow.ID, Err: err}
				m.logger.ErrorContext(ctx, "Event filter evaluation failed", "error", evalErr)

				continue
			}

			if !matched {
				continue
			}
		}

		execution, err := m.launcher.Launch(ctx, workflow, "event:"+name, payload)
		if err != nil {
			evalErr := &triggers.EvaluationError{Source: "event", WorkflowID: workflow.ID, Err: err}
			m.logger.ErrorContext(ctx, "Event launch failed", "error", evalErr)

			continue
		}

		launched = append(launched, execution)
	}

	m.logger.InfoContext(ctx, "External event delivered",
		"event_name", name,
		"matched", len(launched))

	return launched, nil
}
