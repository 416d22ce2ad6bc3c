package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/triggers"
)

// Source polls enabled workflows with time-based triggers and launches an
// execution whenever one is due.
type Source struct {
	workflows WorkflowLister
	launcher  Launcher
	logger    *slog.Logger
	interval  time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	done    chan struct{}
	started bool
}

func NewSource(workflows WorkflowLister, launcher Launcher, logger *slog.Logger, interval time.Duration) *Source {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Source{
		workflows: workflows,
		launcher:  launcher,
		logger:    logger.With("module", "schedule_source"),
		interval:  interval,
		entries:   make(map[string]*Entry),
	}
}

// Start begins the ticker loop. Entries are refreshed from persistence on
// every tick so workflow edits take effect within one interval.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.done = make(chan struct{})
	s.started = true

	s.logger.InfoContext(ctx, "Starting schedule source", "interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop halts the ticker loop.
func (s *Source) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	close(s.done)
	s.started = false

	return nil
}

func (s *Source) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick refreshes the entry set and launches every due schedule. Exported so
// the scheduler binary and tests can drive it directly.
func (s *Source) Tick(ctx context.Context, now time.Time) {
	workflows, err := s.workflows.Workflows(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list workflows", "error", err)

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh(ctx, workflows, now)

	for _, entry := range s.entries {
		if !entry.Due(now) {
			continue
		}

		payload := map[string]any{
			"triggered_at": now.Format(time.RFC3339),
			"cron":         entry.Expression,
		}

		workflow := findWorkflow(workflows, entry.WorkflowID)
		if workflow == nil {
			continue
		}

		if _, err := s.launcher.Launch(ctx, workflow, "schedule", payload); err != nil {
			evalErr := &triggers.EvaluationError{Source: "schedule", WorkflowID: entry.WorkflowID, Err: err}
			s.logger.ErrorContext(ctx, "Schedule launch failed", "error", evalErr)
		}

		entry.Advance(now)
	}
}

// refresh reconciles the entry map with the current workflow set: new or
// changed cron expressions get fresh entries, removed or disabled workflows
// drop out.
func (s *Source) refresh(ctx context.Context, workflows []*models.Workflow, now time.Time) {
	seen := make(map[string]bool, len(workflows))

	for _, workflow := range workflows {
		trigger := workflow.TriggerNode()
		if !workflow.Enabled || trigger == nil || trigger.Trigger == nil {
			continue
		}

		if trigger.Trigger.Type != models.TriggerTypeTime || trigger.Trigger.Cron == "" {
			continue
		}

		seen[workflow.ID] = true

		existing, ok := s.entries[workflow.ID]
		if ok && existing.Expression == trigger.Trigger.Cron {
			continue
		}

		entry, err := NewEntry(workflow.ID, trigger.Trigger.Cron, now)
		if err != nil {
			evalErr := &triggers.EvaluationError{Source: "schedule", WorkflowID: workflow.ID, Err: err}
			s.logger.ErrorContext(ctx, "Skipping workflow with invalid schedule", "error", evalErr)

			continue
		}

		s.entries[workflow.ID] = entry
	}

	for id := range s.entries {
		if !seen[id] {
			delete(s.entries, id)
		}
	}
}

func findWorkflow(workflows []*models.Workflow, id string) *models.Workflow {
	for _, workflow := range workflows {
		if workflow.ID == id {
			return workflow
		}
	}

	return nil
}
