package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	m, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestRecordCalculation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	order := domain.OrderContext{OrderID: "ORD-1"}
	m.RecordCalculation(ctx, domain.Succeeded(order, true, decimal.RequireFromString("1.08")))
	m.RecordCalculation(ctx, domain.Succeeded(order, false, decimal.Zero))
	m.RecordCalculation(ctx, domain.Failed(&domain.CalculationError{
		OrderID: "ORD-1",
		Stage:   domain.StageAddressRetrieved,
		Kind:    domain.KindDataUnavailable,
		Err:     errors.New("down"),
	}, decimal.Zero))
	m.RecordCalculationDuration(ctx, 0.25)

	data := collect(t, reader)

	sum, ok := data["tax_calculations_total"].(metricdata.Sum[int64])
	if !ok {
		t.Fatal("Expected Sum[int64] for tax_calculations_total")
	}
	outcomes := map[string]int64{}
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		outcomes[outcome.AsString()] += dp.Value
		if outcome.AsString() == "failed" {
			stage, _ := dp.Attributes.Value(attribute.Key("failed_stage"))
			if stage.AsString() != "address_retrieved" {
				t.Errorf("failed_stage = %q", stage.AsString())
			}
		}
	}
	for _, outcome := range []string{"taxed", "exempt", "failed"} {
		if outcomes[outcome] != 1 {
			t.Errorf("expected one %s calculation, got %d", outcome, outcomes[outcome])
		}
	}

	amounts, ok := data["tax_amount"].(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("Expected Histogram[float64] for tax_amount")
	}
	if len(amounts.DataPoints) != 1 || amounts.DataPoints[0].Count != 1 {
		t.Errorf("only taxed calculations should record an amount, got %+v", amounts.DataPoints)
	}

	if _, ok := data["tax_calculation_duration_seconds"].(metricdata.Histogram[float64]); !ok {
		t.Error("tax_calculation_duration_seconds metric not found")
	}
}
