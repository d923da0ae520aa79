package tracing

import (
	"context"
	"strings"
	"time"

	obscontext "github.com/smallbiznis/invoicebook/internal/observability/context"
	"github.com/smallbiznis/invoicebook/internal/ownercontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewTracerProvider installs a batching OTLP TracerProvider when an endpoint
// is configured. Without one the global no-op provider is kept.
func NewTracerProvider(lc fx.Lifecycle, cfg Config, logger *zap.Logger) (trace.TracerProvider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		logger.Info("trace export disabled")
		return otel.GetTracerProvider(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(requestSpanProcessor{}),
	)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down tracer provider")
			return tp.Shutdown(ctx)
		},
	})

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", exportProtocol(cfg.Protocol)),
	)
	return tp, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if exportProtocol(cfg.Protocol) == "http/protobuf" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func exportProtocol(protocol string) string {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return "http/protobuf"
	default:
		return "grpc"
	}
}

// requestSpanProcessor stamps every span with the request and owner it serves.
type requestSpanProcessor struct{}

func (requestSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		s.SetAttributes(attribute.String("request_id", requestID))
	}
	if ownerID, ok := ownercontext.OwnerIDFromContext(ctx); ok && ownerID != 0 {
		s.SetAttributes(attribute.String("owner_id", ownerID.String()))
	}
}

func (requestSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (requestSpanProcessor) Shutdown(context.Context) error { return nil }

func (requestSpanProcessor) ForceFlush(context.Context) error { return nil }
