// Package schedule fires time-based triggers. Next-due times are precomputed
// from each workflow's cron expression so the tick only compares timestamps.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/robfig/cron/v3"
)

// Entry is one workflow's compiled cron schedule.
type Entry struct {
	WorkflowID string
	Expression string
	NextDueAt  time.Time

	schedule cron.Schedule
}

// NewEntry parses the cron expression (standard 5-field syntax) and computes
// the first due time.
func NewEntry(workflowID, expression string, now time.Time) (*Entry, error) {
	parsed, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}

	return &Entry{
		WorkflowID: workflowID,
		Expression: expression,
		NextDueAt:  parsed.Next(now),
		schedule:   parsed,
	}, nil
}

// Due reports whether the entry should fire at the given instant.
func (e *Entry) Due(now time.Time) bool {
	return !e.NextDueAt.After(now)
}

// Advance moves NextDueAt past the given instant.
func (e *Entry) Advance(now time.Time) {
	e.NextDueAt = e.schedule.Next(now)
}

// WorkflowLister is the slice of the persistence layer the source needs.
type WorkflowLister interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
}

// Launcher starts executions for due entries.
type Launcher interface {
	Launch(ctx context.Context, workflow *models.Workflow, triggeredBy string, payload map[string]any) (*models.Execution, error)
}
