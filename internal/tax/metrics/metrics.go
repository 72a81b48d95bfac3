package metrics

import (
	"context"
	"fmt"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	calculationsTotal   metric.Int64Counter
	calculationDuration metric.Float64Histogram
	taxAmount           metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.calculationsTotal, err = meter.Int64Counter(
		"tax_calculations_total",
		metric.WithDescription("Total number of tax calculations by outcome"),
		metric.WithUnit("{calculation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tax_calculations_total counter: %w", err)
	}

	m.calculationDuration, err = meter.Float64Histogram(
		"tax_calculation_duration_seconds",
		metric.WithDescription("Duration of tax calculation pipeline runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tax_calculation_duration histogram: %w", err)
	}

	m.taxAmount, err = meter.Float64Histogram(
		"tax_amount",
		metric.WithDescription("Tax amounts returned to checkout"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tax_amount histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCalculation(ctx context.Context, calc domain.Calculation) {
	attrs := []attribute.KeyValue{
		attribute.String("outcome", string(calc.Outcome())),
	}
	if calc.Failed() {
		attrs = append(attrs,
			attribute.String("failed_stage", string(calc.FailedStage())),
			attribute.String("error_kind", string(calc.Err.Kind)),
			attribute.String("notification", string(calc.Notification)),
		)
	}
	m.calculationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if calc.Outcome() == domain.OutcomeTaxed {
		m.taxAmount.Record(ctx, calc.TaxAmount().InexactFloat64())
	}
}

func (m *Metrics) RecordCalculationDuration(ctx context.Context, durationSeconds float64) {
	m.calculationDuration.Record(ctx, durationSeconds)
}
