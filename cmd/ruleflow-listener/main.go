package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/coinflux/ruleflow/pkg/cmd"
	"github.com/coinflux/ruleflow/pkg/log"
	"github.com/coinflux/ruleflow/pkg/otelhelper"
)

const defaultRetentionDays = 90

func main() {
	command := &cli.Command{
		Name:                  "ruleflow-listener",
		Usage:                 "Consume business events and dispatch active workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listener-id",
				Aliases: []string{"id"},
				Usage:   "Custom listener ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("LISTENER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, memory)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the compiled-expression cache (empty disables caching)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "Port for the Prometheus metrics endpoint (0 disables it)",
				Value:   9102,
				Sources: cli.EnvVars("METRICS_PORT"),
			},
			&cli.IntFlag{
				Name:    "report-retention-days",
				Usage:   "Days to keep execution reports before the nightly prune",
				Value:   defaultRetentionDays,
				Sources: cli.EnvVars("REPORT_RETENTION_DAYS"),
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

			listenerID := command.String("listener-id")
			if listenerID == "" {
				listenerID = fmt.Sprintf("listener-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("ruleflow-listener").With("listener_id", listenerID)
			logger.InfoContext(ctx, "Initializing Ruleflow Listener")

			tracerProvider, err := otelhelper.InitTracer(ctx, "ruleflow-listener")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(
				command.String("event-bus"),
				command.String("kafka-brokers"),
				"ruleflow-listener",
				logger,
			)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			expressionCache := cmd.NewExpressionCache(logger, command.String("redis-url"))

			listener, err := NewListener(
				listenerID,
				logger,
				persistence,
				eventBus,
				expressionCache,
				tracerProvider.Tracer("ruleflow-listener"),
				command.String("kafka-brokers"),
				command.Int("report-retention-days"),
				command.Int("metrics-port"),
			)
			if err != nil {
				return err
			}

			listener.Start(ctx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
