package main

import (
	"context"
	"fmt"
	"log/slog"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/idpflow/pkg/cmd"
	"github.com/dukex/idpflow/pkg/engine"
	"github.com/dukex/idpflow/pkg/otelhelper"
	"github.com/dukex/idpflow/pkg/services"
	"github.com/dukex/idpflow/pkg/storage"
)

func run(ctx context.Context, command *cli.Command, logger *slog.Logger) error {
	order, err := engine.ParseOrder(command.String("execution-order"))
	if err != nil {
		return err
	}

	tracer, shutdown, err := newTracer(ctx, command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to flush traces", "error", err)
		}
	}()

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	activity := services.NewActivity(logger)
	if err := activity.Register(eventBus); err != nil {
		return fmt.Errorf("failed to register activity handlers: %w", err)
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to pipeline events: %w", err)
	}

	backend := cmd.BackendConfig{
		ExtractionURL:   command.String("extraction-url"),
		ExtractionToken: command.String("extraction-token"),
		ProjectsURL:     command.String("projects-url"),
		SimulatedDelay:  command.Duration("simulated-delay"),
		SuccessRate:     command.Float("simulated-success-rate"),
		HTTPTimeout:     command.Duration("http-timeout"),

		PostAllowedHosts: command.StringSlice("post-allowed-hosts"),
	}

	files := storage.NewDiskStore(command.String("data-dir"), logger)
	registry := cmd.NewRegistry(logger, backend, files)

	eng := engine.New(registry, logger,
		engine.WithPublisher(eventBus),
		engine.WithTracer(tracer),
		engine.WithOrder(order),
	)

	api := NewAPI(
		logger,
		persistence,
		registry,
		eng,
		cmd.NewDirectory(backend, logger),
		files,
		activity,
	)

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start pipeline API", "error", err)
		return err
	}

	return nil
}

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func newTracer(ctx context.Context, enabled bool) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NewNoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, "pipeline-api")
}
