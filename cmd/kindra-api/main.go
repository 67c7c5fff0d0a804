package main

import (
	"context"
	"os"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/cmd"
	"github.com/darinjswilliams/kindrahealth/pkg/log"
	"github.com/darinjswilliams/kindrahealth/pkg/monitor"
	"github.com/darinjswilliams/kindrahealth/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9080

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "kindra-api",
		Usage:                 "Execute and monitor clinical action workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Workflow store URL (mem:// or file://<path>)",
				Value:   "mem://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the patient notification queue (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "notification-queue",
				Usage:   "Redis list the notification worker consumes",
				Value:   "kindrahealth:patient-notifications",
				Sources: cli.EnvVars("NOTIFICATION_QUEUE"),
			},
			&cli.DurationFlag{
				Name:    "monitoring-duration",
				Usage:   "Hard cap on how long a workflow's monitoring routines may run",
				Value:   30 * 24 * time.Hour,
				Sources: cli.EnvVars("MONITORING_DURATION"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces (needs an OTLP endpoint configured)",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Kindra workflow API")

			repo, err := cmd.NewWorkflowRepository(command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := repo.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close workflow repository", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			notifier, err := cmd.NewNotifier(
				command.String("redis-url"),
				command.String("notification-queue"),
				logger,
			)
			if err != nil {
				return err
			}

			defer func() {
				if err := notifier.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close notifier", "error", err)
				}
			}()

			var tracer trace.Tracer

			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "kindra-api")
				if err != nil {
					return err
				}
			}

			monitorConfig := monitor.DefaultConfig()
			monitorConfig.MaxDuration = command.Duration("monitoring-duration")

			api := NewAPI(logger, repo, eventBus, notifier, tracer, monitorConfig)

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
