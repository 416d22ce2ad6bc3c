package main

import (
	"context"
	"os"
	"time"

	"github.com/flowgrid/flowgrid/pkg/cmd"
	"github.com/flowgrid/flowgrid/pkg/log"
	"github.com/flowgrid/flowgrid/pkg/triggers/queue"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowgrid-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Run trigger sources and resume waiting executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULER_ID"),
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
			&cli.DurationFlag{
				Name:    "tick-interval",
				Usage:   "How often cron schedules are evaluated",
				Value:   time.Minute,
				Sources: cli.EnvVars("TICK_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "resume-interval",
				Usage:   "How often waiting executions are polled for resume",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("RESUME_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list to consume external events from (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the queue source",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password for the queue source",
				Value:   "",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "redis-db",
				Usage:   "Redis database index for the queue source",
				Value:   "0",
				Sources: cli.EnvVars("REDIS_DB"),
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

			schedulerID := command.String("scheduler-id")
			if schedulerID == "" {
				schedulerID = "scheduler-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowgrid-scheduler").With("scheduler_id", schedulerID)
			logger.InfoContext(ctx, "Initializing flowgrid scheduler")

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

			var queueConsumer *queue.Consumer

			if queueName := command.String("queue-name"); queueName != "" {
				consumer, err := queue.NewConsumer(map[string]any{
					"queue": queueName,
					"connection": map[string]any{
						"addr":     command.String("redis-addr"),
						"password": command.String("redis-password"),
						"db":       command.String("redis-db"),
					},
				}, logger)
				if err != nil {
					return err
				}

				queueConsumer = consumer
			}

			manager := NewSchedulerManager(
				schedulerID,
				persistence,
				eventBus,
				logger,
				command.Duration("tick-interval"),
				command.Duration("resume-interval"),
				queueConsumer,
			)

			return manager.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
