package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/metrics"
	"github.com/dejobratic/salestax/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CalculateTaxCommand) domain.Calculation {
	ctx, span := telemetry.StartSpan(ctx, "CalculateTaxCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.currency_code", cmd.CurrencyCode),
	)

	o.logger.InfoContext(ctx, "calculating tax",
		"order_id", cmd.OrderID,
		"taxable_amount", cmd.TaxableAmount,
		"currency_code", cmd.CurrencyCode,
	)

	start := time.Now()
	calc := o.handler.Handle(ctx, cmd)
	duration := time.Since(start).Seconds()

	if o.metrics != nil {
		o.metrics.RecordCalculationDuration(ctx, duration)
		o.metrics.RecordCalculation(ctx, calc)
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("tax.outcome", string(calc.Outcome())),
		attribute.String("tax.taxable_base", calc.TaxableBase.StringFixed(2)),
		attribute.String("tax.amount", calc.TaxAmount().StringFixed(2)),
	)

	if calc.Failed() {
		telemetry.AddSpanAttributes(span,
			attribute.String("tax.failed_stage", string(calc.FailedStage())),
			attribute.String("tax.notification", string(calc.Notification)),
		)
		telemetry.RecordSpanError(span, calc.Err)
		o.logger.WarnContext(ctx, "tax calculation fell back to zero",
			"order_id", cmd.OrderID,
			"failed_stage", calc.FailedStage(),
			"notification", calc.Notification,
		)
		return calc
	}

	o.logger.InfoContext(ctx, "tax calculated",
		"order_id", cmd.OrderID,
		"outcome", calc.Outcome(),
		"taxable_base", calc.TaxableBase.StringFixed(2),
		"tax_amount", calc.TaxAmount().StringFixed(2),
	)

	telemetry.SetSpanSuccess(span)
	return calc
}
