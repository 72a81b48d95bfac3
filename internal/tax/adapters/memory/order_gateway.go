package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/shopspring/decimal"
)

// Order is the stored form of an order: its shipping fields and charge rows.
type Order struct {
	Address   domain.Address
	LineItems []domain.LineItemAmount
	// Shipping is nil when the order had no shipping step.
	Shipping *decimal.Decimal
	Handling decimal.Decimal
}

// OrderGateway provides an in-memory order store useful for local development and tests.
type OrderGateway struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewOrderGateway constructs a new in-memory gateway.
func NewOrderGateway() *OrderGateway {
	return &OrderGateway{orders: make(map[string]Order)}
}

// Put stores or replaces an order.
func (g *OrderGateway) Put(orderID string, order Order) {
	g.mu.Lock()
	defer g.mu.Unlock()
	items := make([]domain.LineItemAmount, len(order.LineItems))
	copy(items, order.LineItems)
	order.LineItems = items
	g.orders[orderID] = order
}

// FetchShippingAddress returns the shipping fields of an order.
func (g *OrderGateway) FetchShippingAddress(_ context.Context, orderID string) (domain.Address, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	order, ok := g.orders[orderID]
	if !ok {
		return domain.Address{}, fmt.Errorf("%w: order %s has no shipping fields", ports.ErrFieldMissing, orderID)
	}
	if err := order.Address.Validate(); err != nil {
		return domain.Address{}, fmt.Errorf("%w: %w", ports.ErrFieldMissing, err)
	}
	return order.Address, nil
}

// FetchOrderTotals returns every line item plus the order's single shipping and handling charge.
func (g *OrderGateway) FetchOrderTotals(_ context.Context, orderID string) (domain.OrderTotals, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	order, ok := g.orders[orderID]
	if !ok || len(order.LineItems) == 0 {
		return domain.OrderTotals{}, fmt.Errorf("%w: %w: %s", ports.ErrDataUnavailable, ports.ErrOrderNotFound, orderID)
	}

	items := make([]domain.LineItemAmount, len(order.LineItems))
	copy(items, order.LineItems)

	totals := domain.OrderTotals{
		LineItems:      items,
		HandlingCharge: order.Handling,
	}
	if order.Shipping != nil {
		totals.ShippingCharge = *order.Shipping
	}
	return totals, nil
}
