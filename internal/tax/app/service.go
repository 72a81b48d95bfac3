package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/salestax/internal/tax/app/commands"
	"github.com/dejobratic/salestax/internal/tax/app/queries"
	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/metrics"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/google/uuid"
)

// StatusCode is the result reported to the storefront host.
type StatusCode int

// StatusSuccess is the only status ever returned; failures show up as zero tax.
const StatusSuccess StatusCode = 0

// Settings carries the injected configuration the pipeline needs.
type Settings struct {
	Storefront    string
	Jurisdictions domain.JurisdictionSet
	Engine        commands.EngineSettings
}

// Service bundles the tax use cases exposed to the storefront host.
type Service struct {
	calculateHandler commands.CommandHandler
	listHandler      *queries.ListCalculationsQueryHandler
	calcLog          ports.CalculationLog
	logger           *slog.Logger
	now              func() time.Time
}

// NewService wires required dependencies.
func NewService(
	orders ports.OrderDataGateway,
	engines ports.TaxEngineFactory,
	notifier ports.NotificationSink,
	calcLog ports.CalculationLog,
	settings Settings,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	coreHandler := commands.NewCalculateTaxCommandHandler(
		orders,
		engines,
		notifier,
		settings.Jurisdictions,
		settings.Engine,
		commands.WithLogger(logger),
		commands.WithStorefront(settings.Storefront),
	)
	observableHandler := commands.NewObservableCommandHandler(coreHandler, logger, metrics)

	return &Service{
		calculateHandler: observableHandler,
		listHandler:      queries.NewListCalculationsQueryHandler(calcLog),
		calcLog:          calcLog,
		logger:           logger,
		now:              time.Now,
	}
}

// CalculateTaxInput captures a calculation request from the host.
type CalculateTaxInput struct {
	OrderID       string  `json:"order_id"`
	TaxableAmount float64 `json:"taxable_amount"`
	CurrencyCode  string  `json:"currency_code"`
}

// Calculate runs the pipeline and records its outcome.
func (s *Service) Calculate(ctx context.Context, input CalculateTaxInput) domain.Calculation {
	calc := s.calculateHandler.Handle(ctx, commands.CalculateTaxCommand{
		OrderID:       input.OrderID,
		TaxableAmount: input.TaxableAmount,
		CurrencyCode:  input.CurrencyCode,
	})
	s.record(ctx, calc, input.CurrencyCode)
	return calc
}

// CalculateTax is the host entry point. It writes the tax amount into taxAmount[0]
// and always reports success, so a failed calculation never blocks checkout.
func (s *Service) CalculateTax(ctx context.Context, orderID string, taxableAmount float64, currencyCode string, taxAmount []float64) (status StatusCode) {
	if len(taxAmount) == 0 {
		s.logger.ErrorContext(ctx, "tax amount slot missing", "order_id", orderID)
		return StatusSuccess
	}
	taxAmount[0] = 0

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "tax calculation panicked", "order_id", orderID, "error", rec)
			taxAmount[0] = 0
			status = StatusSuccess
		}
	}()

	calc := s.Calculate(ctx, CalculateTaxInput{
		OrderID:       orderID,
		TaxableAmount: taxableAmount,
		CurrencyCode:  currencyCode,
	})
	taxAmount[0] = calc.TaxAmount().InexactFloat64()

	return StatusSuccess
}

// ListCalculations returns the recorded calculations of an order.
func (s *Service) ListCalculations(ctx context.Context, query queries.ListCalculationsQuery) ([]ports.CalculationRecord, error) {
	return s.listHandler.Handle(ctx, query)
}

func (s *Service) record(ctx context.Context, calc domain.Calculation, currencyCode string) {
	if s.calcLog == nil {
		return
	}

	record := ports.CalculationRecord{
		ID:           uuid.NewString(),
		OrderID:      calc.OrderID,
		Outcome:      calc.Outcome(),
		FailedStage:  calc.FailedStage(),
		TaxableBase:  calc.TaxableBase,
		TaxAmount:    calc.TaxAmount(),
		CurrencyCode: currencyCode,
		Notification: calc.Notification,
		CreatedAt:    s.now().UTC(),
	}
	if calc.Err != nil {
		record.ErrorKind = calc.Err.Kind
	}

	if err := s.calcLog.Record(context.WithoutCancel(ctx), record); err != nil {
		s.logger.WarnContext(ctx, "failed to record tax calculation",
			"order_id", calc.OrderID,
			"error", err,
		)
	}
}
