package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/triggers"
	"github.com/flowgrid/flowgrid/pkg/triggers/conditional"
	"github.com/flowgrid/flowgrid/pkg/triggers/event"
	"github.com/flowgrid/flowgrid/pkg/triggers/queue"
	"github.com/flowgrid/flowgrid/pkg/triggers/schedule"
)

// SchedulerManager owns every trigger source that runs on a clock or a feed:
// cron schedules, conditional triggers, external event matching, the optional
// redis queue, and the resume poll for waiting executions.
type SchedulerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus

	scheduleSource    *schedule.Source
	conditionalSource *conditional.Source
	matcher           *event.Matcher
	queueConsumer     *queue.Consumer

	resumeInterval time.Duration
}

func NewSchedulerManager(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	tickInterval time.Duration,
	resumeInterval time.Duration,
	queueConsumer *queue.Consumer,
) *SchedulerManager {
	launcher := triggers.NewLauncher(p, eventBus, logger)

	if resumeInterval <= 0 {
		resumeInterval = 10 * time.Second
	}

	return &SchedulerManager{
		id:                id,
		logger:            logger.With("module", "flowgrid-scheduler", "scheduler_id", id),
		persistence:       p,
		eventBus:          eventBus,
		scheduleSource:    schedule.NewSource(p, launcher, logger, tickInterval),
		conditionalSource: conditional.NewSource(p, launcher, logger),
		matcher:           event.NewMatcher(p, launcher, logger),
		queueConsumer:     queueConsumer,
		resumeInterval:    resumeInterval,
	}
}

// Start runs every source until SIGINT/SIGTERM.
func (s *SchedulerManager) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting scheduler manager")

	// External events drive both the event matcher and conditional triggers:
	// the payload is the evaluation context a condition can flip on.
	s.eventBus.Handle(events.ExternalEventReceivedEvent, s.handleExternalEvent)

	if err := s.eventBus.Subscribe(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if err := s.scheduleSource.Start(ctx); err != nil {
		return err
	}

	if s.queueConsumer != nil {
		if err := s.queueConsumer.Start(ctx, s.deliverQueueMessage); err != nil {
			return err
		}
	}

	go s.resumeLoop(ctx)

	s.logger.InfoContext(ctx, "Scheduler started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	s.logger.InfoContext(ctx, "Shutting down scheduler...")

	if err := s.scheduleSource.Stop(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop schedule source", "error", err)
	}

	if s.queueConsumer != nil {
		if err := s.queueConsumer.Stop(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to stop queue consumer", "error", err)
		}
	}

	return nil
}

func (s *SchedulerManager) handleExternalEvent(ctx context.Context, raw any) error {
	received, ok := raw.(*events.ExternalEventReceived)
	if !ok {
		s.logger.ErrorContext(ctx, "Invalid event payload for external event")

		return nil
	}

	if _, err := s.matcher.Deliver(ctx, received.Name, received.Payload); err != nil {
		s.logger.ErrorContext(ctx, "External event delivery failed",
			"event_name", received.Name, "error", err)
	}

	s.conditionalSource.Evaluate(ctx, received.Payload)

	return nil
}

func (s *SchedulerManager) deliverQueueMessage(ctx context.Context, name string, payload map[string]any) error {
	return s.eventBus.Publish(ctx, name, events.ExternalEventReceived{
		BaseEvent: events.NewBaseEvent(events.ExternalEventReceivedEvent, ""),
		Name:      name,
		Payload:   payload,
		Source:    "queue",
	})
}

// resumeLoop polls for waiting executions that are due (delay elapsed) or
// carry a wait expression (re-checked by the engine) and hands them back to
// the workers.
func (s *SchedulerManager) resumeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.resumeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.resumeDue(ctx, now.UTC())
		}
	}
}

func (s *SchedulerManager) resumeDue(ctx context.Context, now time.Time) {
	executions, err := s.persistence.DueWaiting(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to scan waiting executions", "error", err)

		return
	}

	for _, execution := range executions {
		resume := events.ExecutionResume{
			BaseEvent:   events.NewBaseEvent(events.ExecutionResumeEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
		}

		if err := s.eventBus.Publish(ctx, execution.WorkflowID, resume); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish resume",
				"execution_id", execution.ID, "error", err)
		}
	}

	if len(executions) > 0 {
		s.logger.DebugContext(ctx, "Resumed waiting executions", "count", len(executions))
	}
}
