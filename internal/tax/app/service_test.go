package app_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dejobratic/salestax/internal/tax/adapters/memory"
	"github.com/dejobratic/salestax/internal/tax/app"
	"github.com/dejobratic/salestax/internal/tax/app/commands"
	"github.com/dejobratic/salestax/internal/tax/app/queries"
	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFunc func(ctx context.Context, req domain.TaxRequest) (*decimal.Decimal, error)

func (f engineFunc) ComputeTax(ctx context.Context, req domain.TaxRequest) (*decimal.Decimal, error) {
	return f(ctx, req)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

type failingOrders struct{}

func (failingOrders) FetchShippingAddress(context.Context, string) (domain.Address, error) {
	return domain.Address{}, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func (failingOrders) FetchOrderTotals(context.Context, string) (domain.OrderTotals, error) {
	return domain.OrderTotals{}, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

type logFunc struct {
	recordFn func(ctx context.Context, rec ports.CalculationRecord) error
}

func (l logFunc) Record(ctx context.Context, rec ports.CalculationRecord) error {
	return l.recordFn(ctx, rec)
}

func (logFunc) List(context.Context, ports.ListFilter) ([]ports.CalculationRecord, error) {
	return nil, nil
}

func seedOrders(region string) *memory.OrderGateway {
	shipping := decimal.RequireFromString("2.00")
	orders := memory.NewOrderGateway()
	orders.Put("ORD-1", memory.Order{
		Address: domain.Address{Line1: "1 Main St", City: "Springfield", Region: region, PostalCode: "30303", Country: "US"},
		LineItems: []domain.LineItemAmount{
			{OrderGroupID: "ORD-1", Price: decimal.RequireFromString("10.00")},
			{OrderGroupID: "ORD-1", Price: decimal.RequireFromString("5.00")},
		},
		Shipping: &shipping,
		Handling: decimal.RequireFromString("1.00"),
	})
	return orders
}

type harness struct {
	service     *app.Service
	notifier    *recordingNotifier
	engineCalls int
	lastAmount  decimal.Decimal
}

func newHarness(t *testing.T, orders ports.OrderDataGateway, calcLog ports.CalculationLog) *harness {
	t.Helper()

	jurisdictions, err := domain.NewJurisdictionSet("GA")
	require.NoError(t, err)

	h := &harness{notifier: &recordingNotifier{}}
	engines := ports.TaxEngineFactoryFunc(func(string, domain.Credentials) (ports.TaxEngine, error) {
		return engineFunc(func(_ context.Context, req domain.TaxRequest) (*decimal.Decimal, error) {
			h.engineCalls++
			h.lastAmount = req.Amount
			total := decimal.RequireFromString("1.08")
			return &total, nil
		}), nil
	})

	h.service = app.NewService(orders, engines, h.notifier, calcLog, app.Settings{
		Storefront:    "Acme",
		Jurisdictions: jurisdictions,
		Engine:        commands.EngineSettings{Environment: "Sandbox"},
	}, slog.New(slog.DiscardHandler), nil)

	return h
}

func TestCalculateTaxBoundary(t *testing.T) {
	t.Run("georgia order writes engine tax", func(t *testing.T) {
		calcLog := memory.NewCalculationLog()
		h := newHarness(t, seedOrders("GA"), calcLog)

		taxAmount := []float64{-1}
		status := h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", taxAmount)

		assert.Equal(t, app.StatusSuccess, status)
		assert.Equal(t, 1.08, taxAmount[0])
		assert.Equal(t, 1, h.engineCalls)
		assert.True(t, h.lastAmount.Equal(decimal.RequireFromString("18.00")))

		records, err := calcLog.List(context.Background(), ports.ListFilter{OrderID: "ORD-1"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.OutcomeTaxed, records[0].Outcome)
		assert.Equal(t, "USD", records[0].CurrencyCode)
		assert.NotEmpty(t, records[0].ID)
	})

	t.Run("texas order writes zero without engine call", func(t *testing.T) {
		h := newHarness(t, seedOrders("TX"), memory.NewCalculationLog())

		taxAmount := []float64{9}
		status := h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", taxAmount)

		assert.Equal(t, app.StatusSuccess, status)
		assert.Equal(t, 0.0, taxAmount[0])
		assert.Zero(t, h.engineCalls)
		assert.Empty(t, h.notifier.sent)
	})

	t.Run("database failure writes zero and notifies once", func(t *testing.T) {
		calcLog := memory.NewCalculationLog()
		h := newHarness(t, failingOrders{}, calcLog)

		taxAmount := []float64{9}
		status := h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", taxAmount)

		assert.Equal(t, app.StatusSuccess, status)
		assert.Equal(t, 0.0, taxAmount[0])
		require.Len(t, h.notifier.sent, 1)
		assert.Equal(t, "ORD-1", h.notifier.sent[0].OrderID)
		assert.Contains(t, h.notifier.sent[0].BodyHTML, "ORD-1")

		records, err := calcLog.List(context.Background(), ports.ListFilter{OrderID: "ORD-1"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.OutcomeFailed, records[0].Outcome)
		assert.Equal(t, domain.KindDataUnavailable, records[0].ErrorKind)
		assert.Equal(t, domain.StageStart, records[0].FailedStage)
		assert.Equal(t, domain.NotificationSent, records[0].Notification)
	})

	t.Run("missing slot still reports success", func(t *testing.T) {
		h := newHarness(t, seedOrders("GA"), memory.NewCalculationLog())

		assert.Equal(t, app.StatusSuccess, h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", nil))
		assert.Zero(t, h.engineCalls)
	})

	t.Run("recording failure does not change the result", func(t *testing.T) {
		calcLog := logFunc{recordFn: func(context.Context, ports.CalculationRecord) error {
			return errors.New("insert tax calculation: relation does not exist")
		}}
		h := newHarness(t, seedOrders("GA"), calcLog)

		taxAmount := []float64{0}
		status := h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", taxAmount)

		assert.Equal(t, app.StatusSuccess, status)
		assert.Equal(t, 1.08, taxAmount[0])
	})

	t.Run("panic after calculation yields zero and success", func(t *testing.T) {
		calcLog := logFunc{recordFn: func(context.Context, ports.CalculationRecord) error {
			panic("log driver bug")
		}}
		h := newHarness(t, seedOrders("GA"), calcLog)

		taxAmount := []float64{5}
		status := h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", taxAmount)

		assert.Equal(t, app.StatusSuccess, status)
		assert.Equal(t, 0.0, taxAmount[0])
	})
}

func TestListCalculationsThroughService(t *testing.T) {
	calcLog := memory.NewCalculationLog()
	h := newHarness(t, seedOrders("GA"), calcLog)

	slot := []float64{0}
	h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", slot)
	h.service.CalculateTax(context.Background(), "ORD-1", 15, "USD", slot)

	records, err := h.service.ListCalculations(context.Background(), queries.ListCalculationsQuery{OrderID: "ORD-1"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = h.service.ListCalculations(context.Background(), queries.ListCalculationsQuery{})
	assert.ErrorIs(t, err, queries.ErrInvalidQuery)
}
