package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/querydesk/querydesk/internal/config"
)

// InitTracing installs the global tracer provider selected by the config and
// returns its shutdown function. With the "none" exporter the otel no-op
// provider stays in place.
func InitTracing(cfg config.Config, writer io.Writer) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Observability.TraceExporter {
	case config.TraceExporterNone, "":
		return noop, nil
	case config.TraceExporterStdout:
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Observability.TraceExporter)
	}

	options := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if writer != nil {
		options = append(options, stdouttrace.WithWriter(writer))
	}
	exporter, err := stdouttrace.New(options...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.Service.Name),
		attribute.String("deployment.environment", string(cfg.Profile)),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
