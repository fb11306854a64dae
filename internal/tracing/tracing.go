// Package tracing owns the OpenTelemetry tracer provider shared by the HTTP
// middleware, the upstream clients and background event handlers.
package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is the default service name reported with every span.
const ServiceName = "loyalty-wallet-bridge"

// Config holds tracing configuration.
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector, e.g. http://localhost:14268/api/traces
	ServiceName string
	Environment string
	// Version is the build version, set with -ldflags in cmd/api.
	Version string
	// SampleRatio is the share of root traces kept; 0 or >= 1 keeps all.
	SampleRatio float64
}

// Tracer wraps OpenTelemetry tracer functionality.
type Tracer struct {
	tracer trace.Tracer
}

var (
	mu       sync.RWMutex
	current  = &Tracer{tracer: noop.NewTracerProvider().Tracer(ServiceName)}
	provider *tracesdk.TracerProvider
)

// InitTracing installs the global tracer. With tracing disabled spans are
// no-ops.
func InitTracing(cfg Config) (*Tracer, error) {
	if !cfg.Enabled {
		return install(nil, ServiceName), nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("tracing: jaeger exporter: %w", err)
	}

	tp, err := NewProvider(cfg, exp)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return install(tp, serviceName(cfg)), nil
}

// NewProvider builds a batching tracer provider that exports to exp and
// describes this service with cfg.
func NewProvider(cfg Config, exp tracesdk.SpanExporter) (*tracesdk.TracerProvider, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName(cfg)),
			semconv.ServiceVersionKey.String(version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	sampler := tracesdk.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = tracesdk.TraceIDRatioBased(cfg.SampleRatio)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(sampler)),
	), nil
}

func serviceName(cfg Config) string {
	if cfg.ServiceName == "" {
		return ServiceName
	}
	return cfg.ServiceName
}

func install(tp *tracesdk.TracerProvider, name string) *Tracer {
	t := &Tracer{tracer: noop.NewTracerProvider().Tracer(name)}
	if tp != nil {
		t = &Tracer{tracer: tp.Tracer(name)}
	}

	mu.Lock()
	defer mu.Unlock()
	current = t
	provider = tp
	return t
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// GetTracer returns the installed tracer, a no-op one before InitTracing.
func GetTracer() *Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Shutdown flushes and stops the provider installed by InitTracing.
func Shutdown(ctx context.Context) error {
	mu.RLock()
	tp := provider
	mu.RUnlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// RecordFailure marks the span as failed with err.
func RecordFailure(span trace.Span, err error, description string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}
