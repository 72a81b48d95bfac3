package notify

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	sendLatency metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.sendLatency, err = meter.Float64Histogram(
		"notification_send_duration_seconds",
		metric.WithDescription("Failure notification delivery latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notification_send_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordSend(ctx context.Context, sink string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.sendLatency.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", status),
	))
}
