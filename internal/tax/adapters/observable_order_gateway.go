package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/salestax/internal/database"
	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/dejobratic/salestax/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableOrderGateway struct {
	gateway ports.OrderDataGateway
	metrics *database.Metrics
}

func NewObservableOrderGateway(gateway ports.OrderDataGateway, metrics *database.Metrics) *ObservableOrderGateway {
	return &ObservableOrderGateway{
		gateway: gateway,
		metrics: metrics,
	}
}

func (g *ObservableOrderGateway) FetchShippingAddress(ctx context.Context, orderID string) (domain.Address, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderDataGateway.FetchShippingAddress")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("operation", "fetch_shipping_address"),
	)

	start := time.Now()
	address, err := g.gateway.FetchShippingAddress(ctx, orderID)
	duration := time.Since(start).Seconds()

	g.metrics.RecordQuery(ctx, "fetch_shipping_address", duration, err)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return domain.Address{}, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("address.region", address.Region),
		attribute.String("address.country", address.Country),
	)
	telemetry.SetSpanSuccess(span)
	return address, nil
}

func (g *ObservableOrderGateway) FetchOrderTotals(ctx context.Context, orderID string) (domain.OrderTotals, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderDataGateway.FetchOrderTotals")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("operation", "fetch_order_totals"),
	)

	start := time.Now()
	totals, err := g.gateway.FetchOrderTotals(ctx, orderID)
	duration := time.Since(start).Seconds()

	g.metrics.RecordQuery(ctx, "fetch_order_totals", duration, err)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return domain.OrderTotals{}, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.Int("result.line_items", len(totals.LineItems)),
		attribute.String("result.taxable_base", totals.TaxableBase().StringFixed(2)),
	)
	telemetry.SetSpanSuccess(span)
	return totals, nil
}
