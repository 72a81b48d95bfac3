package avatax

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	requestLatency metric.Float64Histogram
	requestErrors  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.requestLatency, err = meter.Float64Histogram(
		"tax_engine_request_duration_seconds",
		metric.WithDescription("AvaTax request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tax_engine_request_duration histogram: %w", err)
	}

	m.requestErrors, err = meter.Int64Counter(
		"tax_engine_request_errors_total",
		metric.WithDescription("Failed AvaTax requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tax_engine_request_errors counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordRequest(ctx context.Context, operation string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
	m.requestLatency.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}
