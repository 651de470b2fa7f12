package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/fairyhunter13/softrate-ats/internal/config"
)

// SetupTracing installs a global OTLP/gRPC tracer provider. With no endpoint
// configured tracing stays a no-op and the returned shutdown is nil.
func SetupTracing(cfg config.Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		slog.Info("tracing disabled", slog.String("reason", "no OTLP endpoint"))
		return nil, nil
	}
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=tracing.exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.OTELServiceName),
			semconv.DeploymentEnvironmentKey.String(cfg.AppEnv),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=tracing.resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg)))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	slog.Info("tracing enabled",
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.Float64("sample_ratio", sampleRatio(cfg)))
	return tp.Shutdown, nil
}

// sampleRatio samples everything outside prod and clamps the prod ratio to [0,1].
func sampleRatio(cfg config.Config) float64 {
	if !cfg.IsProd() {
		return 1
	}
	switch r := cfg.TraceSampleRatio; {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
