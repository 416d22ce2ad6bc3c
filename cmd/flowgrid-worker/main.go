package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowgrid/flowgrid/pkg/cmd"
	"github.com/flowgrid/flowgrid/pkg/engine"
	"github.com/flowgrid/flowgrid/pkg/log"
	"github.com/flowgrid/flowgrid/pkg/otelhelper"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowgrid-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker pool that executes workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Maximum executions processed in parallel",
				Value:   10,
				Sources: cli.EnvVars("WORKER_CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for executions and action dispatches",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowgrid-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing flowgrid worker")

			if command.Bool("tracing") {
				shutdown, err := otelhelper.InitTracing(ctx, "flowgrid-worker")
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down tracing", "error", err)
					}
				}()
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			dispatcher := registry.NewDispatcher(cmd.NewRegistry(logger))
			eng := engine.New(persistence, dispatcher, eventBus, logger)
			worker := engine.NewWorker(workerID, eng, eventBus, logger, command.Int("concurrency"))

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			if err := worker.Start(runCtx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down worker...")

			cancel()
			worker.Wait()

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
