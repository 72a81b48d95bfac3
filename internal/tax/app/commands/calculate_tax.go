package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/dejobratic/salestax/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type CalculateTaxCommand struct {
	OrderID       string
	TaxableAmount float64
	CurrencyCode  string
}

func (c CalculateTaxCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CalculateTaxCommand) domain.Calculation
}

// EngineSettings are the injected tax engine parameters.
type EngineSettings struct {
	Environment  string
	Credentials  domain.Credentials
	CompanyCode  string
	CustomerCode string
}

type CalculateTaxCommandHandler struct {
	orders        ports.OrderDataGateway
	engines       ports.TaxEngineFactory
	notifier      ports.NotificationSink
	jurisdictions domain.JurisdictionSet
	engine        EngineSettings
	storefront    string
	logger        *slog.Logger
	now           func() time.Time
}

type HandlerOption func(*CalculateTaxCommandHandler)

func WithClock(now func() time.Time) HandlerOption {
	return func(h *CalculateTaxCommandHandler) {
		h.now = now
	}
}

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *CalculateTaxCommandHandler) {
		h.logger = logger
	}
}

func WithStorefront(name string) HandlerOption {
	return func(h *CalculateTaxCommandHandler) {
		h.storefront = name
	}
}

func NewCalculateTaxCommandHandler(
	orders ports.OrderDataGateway,
	engines ports.TaxEngineFactory,
	notifier ports.NotificationSink,
	jurisdictions domain.JurisdictionSet,
	engine EngineSettings,
	opts ...HandlerOption,
) *CalculateTaxCommandHandler {
	h := &CalculateTaxCommandHandler{
		orders:        orders,
		engines:       engines,
		notifier:      notifier,
		jurisdictions: jurisdictions,
		engine:        engine,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs the pipeline to completion. It never returns an error: a failure is
// carried in the calculation and has already been reported to operators.
func (h *CalculateTaxCommandHandler) Handle(ctx context.Context, cmd CalculateTaxCommand) (calc domain.Calculation) {
	run := &pipeline{handler: h, orderID: cmd.OrderID, stage: domain.StageStart, base: decimal.Zero}

	defer func() {
		if rec := recover(); rec != nil {
			calc = domain.Failed(run.fail(domain.KindInternal, fmt.Errorf("panic: %v", rec)), run.base)
		}
		if calc.Failed() {
			calc.Notification = h.notify(ctx, calc.Err)
		}
	}()

	return run.execute(ctx, cmd)
}

func (h *CalculateTaxCommandHandler) notify(ctx context.Context, calcErr *domain.CalculationError) domain.NotificationStatus {
	h.logger.ErrorContext(ctx, "tax calculation failed",
		"order_id", calcErr.OrderID,
		"stage", calcErr.Stage,
		"kind", calcErr.Kind,
		"error", calcErr.Err,
	)

	notification := domain.NewFailureNotification(h.storefront, calcErr, h.now())
	if err := h.notifier.Notify(context.WithoutCancel(ctx), notification); err != nil {
		h.logger.WarnContext(ctx, "failure notification not sent",
			"order_id", calcErr.OrderID,
			"error", err,
		)
		return domain.NotificationFailed
	}

	h.logger.InfoContext(ctx, "failure notification sent", "order_id", calcErr.OrderID)
	return domain.NotificationSent
}

// pipeline tracks one run through the calculation states.
type pipeline struct {
	handler *CalculateTaxCommandHandler
	orderID string
	stage   domain.Stage
	base    decimal.Decimal
}

func (p *pipeline) execute(ctx context.Context, cmd CalculateTaxCommand) domain.Calculation {
	h := p.handler

	if err := cmd.Validate(); err != nil {
		return domain.Failed(p.fail(domain.KindFieldMissing, err), p.base)
	}

	address, err := h.orders.FetchShippingAddress(ctx, cmd.OrderID)
	if err != nil {
		kind := domain.KindDataUnavailable
		if errors.Is(err, ports.ErrFieldMissing) {
			kind = domain.KindFieldMissing
		}
		return domain.Failed(p.fail(kind, err), p.base)
	}
	if err := address.Validate(); err != nil {
		return domain.Failed(p.fail(domain.KindFieldMissing, fmt.Errorf("%w: %w", ports.ErrFieldMissing, err)), p.base)
	}
	p.advance(ctx, domain.StageAddressRetrieved, "region", address.Region, "postal_code", address.PostalCode)

	totals, err := h.orders.FetchOrderTotals(ctx, cmd.OrderID)
	if err != nil {
		return domain.Failed(p.fail(domain.KindDataUnavailable, err), p.base)
	}
	order := domain.OrderContext{OrderID: cmd.OrderID, Address: address, Totals: totals}
	p.base = order.TaxableBase()
	p.advance(ctx, domain.StageTotalsRetrieved,
		"line_items", len(totals.LineItems),
		"subtotal", totals.Subtotal().StringFixed(2),
		"shipping", totals.ShippingCharge.StringFixed(2),
		"handling", totals.HandlingCharge.StringFixed(2),
		"taxable_base", p.base.StringFixed(2),
	)

	taxable := h.jurisdictions.IsTaxable(address.Region)
	p.advance(ctx, domain.StageJurisdictionChecked, "taxable", taxable)

	if !taxable {
		p.advance(ctx, domain.StageSkipped)
		return domain.Succeeded(order, false, decimal.Zero)
	}

	engine, err := h.engines.Configure(h.engine.Environment, h.engine.Credentials)
	if err != nil {
		return domain.Failed(p.fail(domain.KindConfigurationInvalid, err), p.base)
	}

	req := domain.NewTaxRequest(h.engine.CompanyCode, h.engine.CustomerCode, order)
	total, err := engine.ComputeTax(ctx, req)
	if err != nil {
		return domain.Failed(p.fail(domain.KindEngineCallFailed, err), p.base)
	}

	amount := decimal.Zero
	if total != nil {
		amount = *total
	}
	p.advance(ctx, domain.StageEngineInvoked, "total_tax", amount.StringFixed(2))

	return domain.Succeeded(order, true, amount)
}

func (p *pipeline) advance(ctx context.Context, stage domain.Stage, attrs ...any) {
	p.stage = stage
	telemetry.AddSpanEvent(trace.SpanFromContext(ctx), "tax.stage", attribute.String("stage", string(stage)))
	args := append([]any{"order_id", p.orderID, "stage", stage}, attrs...)
	p.handler.logger.DebugContext(ctx, "tax calculation stage reached", args...)
}

func (p *pipeline) fail(kind domain.ErrorKind, err error) *domain.CalculationError {
	return &domain.CalculationError{
		OrderID: p.orderID,
		Stage:   p.stage,
		Kind:    kind,
		Err:     err,
	}
}
