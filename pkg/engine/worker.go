package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
)

const defaultConcurrency = 10

// Worker consumes execution dispatch events from the bus and drives them
// through the engine. A semaphore bounds the number of executions in flight;
// each execution still runs on exactly one goroutine.
type Worker struct {
	id     string
	engine *Engine
	bus    eventbus.EventBus
	logger *slog.Logger

	semaphore chan struct{}
	wg        sync.WaitGroup
}

func NewWorker(id string, engine *Engine, bus eventbus.EventBus, logger *slog.Logger, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Worker{
		id:        id,
		engine:    engine,
		bus:       bus,
		logger:    logger.With("module", "worker", "worker_id", id),
		semaphore: make(chan struct{}, concurrency),
	}
}

// Start registers the dispatch handlers and subscribes to the bus. It returns
// once the subscription is established; Wait blocks on in-flight executions.
func (w *Worker) Start(ctx context.Context) error {
	w.bus.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested)
	w.bus.Handle(events.ExecutionResumeEvent, w.handleExecutionResume)

	if err := w.bus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started", "concurrency", cap(w.semaphore))

	return nil
}

// Wait blocks until every in-flight execution finishes. Call after the bus
// subscription has been shut down.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event payload for execution request")

		return nil
	}

	w.run(ctx, requested.ExecutionID, requested.WorkflowID)

	return nil
}

func (w *Worker) handleExecutionResume(ctx context.Context, event any) error {
	resume, ok := event.(*events.ExecutionResume)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event payload for execution resume")

		return nil
	}

	w.run(ctx, resume.ExecutionID, resume.WorkflowID)

	return nil
}

// run executes one dispatch under the semaphore. The handler blocks while the
// pool is saturated so the bus applies backpressure instead of piling up
// goroutines.
func (w *Worker) run(ctx context.Context, executionID, workflowID string) {
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()

		logger := w.logger.With("execution_id", executionID, "workflow_id", workflowID)
		logger.InfoContext(ctx, "Processing execution dispatch")

		if err := w.engine.Run(ctx, executionID); err != nil {
			logger.ErrorContext(ctx, "Execution run failed", "error", err)
		}
	}()
}
