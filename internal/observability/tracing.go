package observability

import (
	"context"

	"github.com/upeosms/upeo/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RegisterTracing wires an OTLP/HTTP trace exporter into the app
// lifecycle when tracing is enabled.
func RegisterTracing(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) {
	if !cfg.Trace.Enabled {
		return
	}

	var provider *sdktrace.TracerProvider

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			exporter, err := otlptracehttp.New(ctx,
				otlptracehttp.WithEndpoint(cfg.Trace.Endpoint),
				otlptracehttp.WithInsecure(),
			)
			if err != nil {
				return err
			}

			provider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceName("upeo"),
				)),
			)
			otel.SetTracerProvider(provider)
			log.Info("tracing enabled", zap.String("endpoint", cfg.Trace.Endpoint))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if provider == nil {
				return nil
			}
			return provider.Shutdown(ctx)
		},
	})
}
