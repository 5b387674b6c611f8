package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/idpflow/pkg/log"
)

const defaultPort = 9092

func main() {
	cmd := &cli.Command{
		Name:                  "pipeline-api",
		Usage:                 "Build and run document extraction pipelines",
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
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory that keeps uploaded documents (under uploads/)",
				Value:   "./data",
				Sources: cli.EnvVars("DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "extraction-url",
				Usage:   "Base URL of the document extraction backend",
				Value:   "http://localhost:8000/api",
				Sources: cli.EnvVars("EXTRACTION_URL"),
			},
			&cli.StringFlag{
				Name:    "extraction-token",
				Usage:   "Bearer token sent to the extraction backend",
				Sources: cli.EnvVars("EXTRACTION_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "projects-url",
				Usage:   "Base URL of the project directory, defaults to the extraction URL",
				Sources: cli.EnvVars("PROJECTS_URL"),
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				Usage:   "Timeout of outgoing backend requests",
				Value:   60 * time.Second,
				Sources: cli.EnvVars("HTTP_TIMEOUT"),
			},
			&cli.StringSliceFlag{
				Name:    "post-allowed-hosts",
				Usage:   "Hosts HTTPS Post nodes may deliver to (example.com, *.example.com or *). Empty refuses all deliveries",
				Sources: cli.EnvVars("POST_ALLOWED_HOSTS"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "execution-order",
				Usage:   "Order nodes run in (creation, topological)",
				Value:   "creation",
				Sources: cli.EnvVars("EXECUTION_ORDER"),
			},
			&cli.DurationFlag{
				Name:    "simulated-delay",
				Usage:   "Delay of nodes without a real backend",
				Value:   1500 * time.Millisecond,
				Sources: cli.EnvVars("SIMULATED_DELAY"),
			},
			&cli.FloatFlag{
				Name:    "simulated-success-rate",
				Usage:   "Probability a simulated node succeeds",
				Value:   0.8,
				Sources: cli.EnvVars("SIMULATED_SUCCESS_RATE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export run traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing pipeline API")

			return run(ctx, command, logger)
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("Pipeline API stopped", "error", err)
		os.Exit(1)
	}
}
