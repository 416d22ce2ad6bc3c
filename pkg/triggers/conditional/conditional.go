// Package conditional fires conditional triggers. Expressions are evaluated
// against an externally supplied context on every tick, and a workflow
// launches only on a false-to-true transition, so a condition that stays true
// fires once, not every tick.
package conditional

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flowgrid/flowgrid/pkg/expr"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/triggers"
)

// WorkflowLister is the slice of the persistence layer the source needs.
type WorkflowLister interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
}

// Launcher starts executions for triggered workflows.
type Launcher interface {
	Launch(ctx context.Context, workflow *models.Workflow, triggeredBy string, payload map[string]any) (*models.Execution, error)
}

// Source evaluates conditional triggers edge-triggered against a caller
// supplied context.
type Source struct {
	workflows WorkflowLister
	launcher  Launcher
	logger    *slog.Logger

	mu        sync.Mutex
	lastState map[string]bool
}

func NewSource(workflows WorkflowLister, launcher Launcher, logger *slog.Logger) *Source {
	return &Source{
		workflows: workflows,
		launcher:  launcher,
		logger:    logger.With("module", "conditional_source"),
		lastState: make(map[string]bool),
	}
}

// Evaluate runs every enabled conditional trigger against the given context
// and launches workflows whose expression flipped from false to true. It
// returns the executions launched this tick. A workflow whose expression
// fails to evaluate is skipped and does not disturb the others.
func (s *Source) Evaluate(ctx context.Context, evalContext map[string]any) []*models.Execution {
	workflows, err := s.workflows.Workflows(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list workflows", "error", err)

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	launched := make([]*models.Execution, 0)
	seen := make(map[string]bool, len(workflows))

	for _, workflow := range workflows {
		trigger := workflow.TriggerNode()
		if !workflow.Enabled || trigger == nil || trigger.Trigger == nil {
			continue
		}

		if trigger.Trigger.Type != models.TriggerTypeConditional || trigger.Trigger.Expression == "" {
			continue
		}

		seen[workflow.ID] = true

		result, err := expr.Evaluate(trigger.Trigger.Expression, evalContext)
		if err != nil {
			evalErr := &triggers.EvaluationError{Source: "conditional", WorkflowID: workflow.ID, Err: err}
			s.logger.ErrorContext(ctx, "Conditional trigger evaluation failed", "error", evalErr)

			continue
		}

		previous := s.lastState[workflow.ID]
		s.lastState[workflow.ID] = result

		if !result || previous {
			continue
		}

		payload := map[string]any{"condition": trigger.Trigger.Expression}
		for k, v := range evalContext {
			payload[k] = v
		}

		execution, err := s.launcher.Launch(ctx, workflow, "conditional", payload)
		if err != nil {
			evalErr := &triggers.EvaluationError{Source: "conditional", WorkflowID: workflow.ID, Err: err}
			s.logger.ErrorContext(ctx, "Conditional launch failed", "error", evalErr)

			continue
		}

		launched = append(launched, execution)
	}

	// Forget state for workflows that no longer have a conditional trigger so
	// re-adding one starts from a clean slate.
	for id := range s.lastState {
		if !seen[id] {
			delete(s.lastState, id)
		}
	}

	return launched
}
