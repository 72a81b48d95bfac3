package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/salestax/internal/tax/domain"
)

// OrderDataGateway reads the order fields and charges needed to calculate tax.
type OrderDataGateway interface {
	FetchShippingAddress(ctx context.Context, orderID string) (domain.Address, error)
	FetchOrderTotals(ctx context.Context, orderID string) (domain.OrderTotals, error)
}

var (
	// ErrDataUnavailable is returned when the order store cannot be reached or queried.
	ErrDataUnavailable = errors.New("order data unavailable")
	// ErrFieldMissing is returned when a required address field is absent.
	ErrFieldMissing = errors.New("required order field missing")
	// ErrOrderNotFound is returned when the order has no line items.
	ErrOrderNotFound = errors.New("order not found")
)
