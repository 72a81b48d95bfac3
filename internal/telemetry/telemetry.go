// Package telemetry installs the OpenTelemetry providers and the trace-aware
// slog logger used across the tax service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	ErrInvalidConfig         = errors.New("invalid telemetry configuration")
	ErrMissingServiceName    = errors.New("service name is required")
	ErrMissingServiceVersion = errors.New("service version is required")
	ErrInvalidSampleRate     = errors.New("sample rate must be between 0.0 and 1.0")
)

const defaultMetricInterval = 30 * time.Second

// Config selects what the process exports. An empty OTLPEndpoint keeps the
// providers installed but discards their output.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64
	// MetricInterval is the export period; zero means 30s.
	MetricInterval time.Duration
}

func (c Config) Validate() error {
	var problem error
	switch {
	case c.ServiceName == "":
		problem = ErrMissingServiceName
	case c.ServiceVersion == "":
		problem = ErrMissingServiceVersion
	case c.SampleRate < 0 || c.SampleRate > 1:
		problem = ErrInvalidSampleRate
	default:
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, problem)
}

// Telemetry owns the installed providers until Shutdown.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	traceExporter  sdktrace.SpanExporter
	metricExporter sdkmetric.Exporter
}

type Option func(*exporterOverrides)

type exporterOverrides struct {
	spans   sdktrace.SpanExporter
	metrics sdkmetric.Exporter
}

// WithTraceExporter replaces the exporter chosen from the endpoint.
func WithTraceExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *exporterOverrides) { o.spans = exporter }
}

// WithMetricExporter replaces the exporter chosen from the endpoint.
func WithMetricExporter(exporter sdkmetric.Exporter) Option {
	return func(o *exporterOverrides) { o.metrics = exporter }
}

// Initialize installs global tracer and meter providers and the W3C propagator.
func Initialize(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides exporterOverrides
	for _, opt := range opts {
		opt(&overrides)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build service resource: %w", err)
	}

	tel := &Telemetry{}

	if cfg.EnableTracing {
		exp, err := newSpanExporter(ctx, cfg.OTLPEndpoint, overrides.spans)
		if err != nil {
			return nil, err
		}
		tel.traceExporter = exp
		tel.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(cfg.SampleRate)),
			sdktrace.WithBatcher(exp),
		)
		otel.SetTracerProvider(tel.tracerProvider)
	}

	if cfg.EnableMetrics {
		exp, err := newMetricExporter(ctx, cfg.OTLPEndpoint, overrides.metrics)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, err
		}
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = defaultMetricInterval
		}
		tel.metricExporter = exp
		tel.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
		)
		otel.SetMeterProvider(tel.meterProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tel, nil
}

func serviceResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithProcessRuntimeDescription(),
	)
}

// sampler keeps every trace at rate 1, none at 0, and otherwise follows the
// parent's decision with a ratio for root spans.
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Shutdown flushes and stops the providers. Exporters are stopped by their
// providers; an exporter left without a provider is stopped directly.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	} else if t.traceExporter != nil {
		if err := t.traceExporter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown trace exporter: %w", err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (t *Telemetry) TracerProvider() *sdktrace.TracerProvider {
	return t.tracerProvider
}

func (t *Telemetry) MeterProvider() *sdkmetric.MeterProvider {
	return t.meterProvider
}

// Meter returns a named meter from the installed provider, or the global no-op
// meter when metrics are disabled.
func (t *Telemetry) Meter(name string) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return otel.Meter(name)
	}
	return t.meterProvider.Meter(name)
}
