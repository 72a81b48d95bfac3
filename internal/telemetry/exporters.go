package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSpanExporter prefers an injected exporter, then OTLP over plaintext gRPC to
// the collector sidecar, then a discarding exporter when no endpoint is set.
func newSpanExporter(ctx context.Context, endpoint string, injected sdktrace.SpanExporter) (sdktrace.SpanExporter, error) {
	if injected != nil {
		return injected, nil
	}
	if endpoint == "" {
		return NewDiscardTraceExporter(), nil
	}
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter for %s: %w", endpoint, err)
	}
	return exp, nil
}

func newMetricExporter(ctx context.Context, endpoint string, injected sdkmetric.Exporter) (sdkmetric.Exporter, error) {
	if injected != nil {
		return injected, nil
	}
	if endpoint == "" {
		return NewDiscardMetricExporter(), nil
	}
	exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter for %s: %w", endpoint, err)
	}
	return exp, nil
}

type discardTraceExporter struct{}

func (discardTraceExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (discardTraceExporter) Shutdown(context.Context) error                             { return nil }

type discardMetricExporter struct{}

func (discardMetricExporter) Temporality(sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (discardMetricExporter) Aggregation(sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.AggregationDefault{}
}

func (discardMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (discardMetricExporter) ForceFlush(context.Context) error                          { return nil }
func (discardMetricExporter) Shutdown(context.Context) error                            { return nil }

// NewDiscardTraceExporter returns an exporter that drops every span.
func NewDiscardTraceExporter() sdktrace.SpanExporter {
	return discardTraceExporter{}
}

// NewDiscardMetricExporter returns an exporter that drops every collection.
func NewDiscardMetricExporter() sdkmetric.Exporter {
	return discardMetricExporter{}
}
