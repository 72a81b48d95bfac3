package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/salestax/internal/tax/adapters/avatax"
	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/dejobratic/salestax/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableTaxEngine struct {
	engine  ports.TaxEngine
	metrics *avatax.Metrics
}

func NewObservableTaxEngine(engine ports.TaxEngine, metrics *avatax.Metrics) *ObservableTaxEngine {
	return &ObservableTaxEngine{
		engine:  engine,
		metrics: metrics,
	}
}

func (e *ObservableTaxEngine) ComputeTax(ctx context.Context, req domain.TaxRequest) (*decimal.Decimal, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaxEngine.ComputeTax")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("tax.company_code", req.CompanyCode),
		attribute.String("tax.document_type", string(req.DocumentType)),
		attribute.String("tax.region", req.Address.Region),
		attribute.String("tax.amount", req.Amount.StringFixed(2)),
	)

	start := time.Now()
	total, err := e.engine.ComputeTax(ctx, req)
	duration := time.Since(start).Seconds()

	e.metrics.RecordRequest(ctx, "create_transaction", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Bool("tax.total_present", total != nil))
	telemetry.SetSpanSuccess(span)
	return total, nil
}

// ObservableTaxEngineFactory decorates every configured engine.
type ObservableTaxEngineFactory struct {
	factory ports.TaxEngineFactory
	metrics *avatax.Metrics
}

func NewObservableTaxEngineFactory(factory ports.TaxEngineFactory, metrics *avatax.Metrics) *ObservableTaxEngineFactory {
	return &ObservableTaxEngineFactory{
		factory: factory,
		metrics: metrics,
	}
}

func (f *ObservableTaxEngineFactory) Configure(env string, creds domain.Credentials) (ports.TaxEngine, error) {
	engine, err := f.factory.Configure(env, creds)
	if err != nil {
		return nil, err
	}
	return NewObservableTaxEngine(engine, f.metrics), nil
}
