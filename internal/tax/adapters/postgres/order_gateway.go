package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 15 * time.Second

// Order field names as the storefront host stores them.
const (
	fieldShippingFirstName  = "ShippingFirstName"
	fieldShippingLastName   = "ShippingLastName"
	fieldShippingAddress1   = "ShippingAddress1"
	fieldShippingAddress2   = "ShippingAddress2"
	fieldShippingCity       = "ShippingCity"
	fieldShippingState      = "ShippingState"
	fieldShippingPostalCode = "ShippingPostalCode"
	fieldShippingCountry    = "ShippingCountry"
)

var shippingFields = []string{
	fieldShippingFirstName,
	fieldShippingLastName,
	fieldShippingAddress1,
	fieldShippingAddress2,
	fieldShippingCity,
	fieldShippingState,
	fieldShippingPostalCode,
	fieldShippingCountry,
}

type OrderGateway struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

type OrderGatewayOption func(*OrderGateway)

func WithQueryTimeout(timeout time.Duration) OrderGatewayOption {
	return func(g *OrderGateway) {
		if timeout > 0 {
			g.queryTimeout = timeout
		}
	}
}

func NewOrderGateway(pool *pgxpool.Pool, opts ...OrderGatewayOption) *OrderGateway {
	g := &OrderGateway{pool: pool, queryTimeout: defaultQueryTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *OrderGateway) FetchShippingAddress(ctx context.Context, orderID string) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	query := `
		SELECT field_name, COALESCE(field_value, '')
		FROM order_fields
		WHERE order_group_id = $1 AND field_name = ANY($2)
	`

	rows, err := g.pool.Query(ctx, query, orderID, shippingFields)
	if err != nil {
		return domain.Address{}, fmt.Errorf("%w: query order fields: %w", ports.ErrDataUnavailable, err)
	}
	defer rows.Close()

	fields := make(map[string]string, len(shippingFields))
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return domain.Address{}, fmt.Errorf("%w: scan order field: %w", ports.ErrDataUnavailable, err)
		}
		fields[name] = value
	}

	if err := rows.Err(); err != nil {
		return domain.Address{}, fmt.Errorf("%w: iterate order fields: %w", ports.ErrDataUnavailable, err)
	}

	address := domain.Address{
		FirstName:  fields[fieldShippingFirstName],
		LastName:   fields[fieldShippingLastName],
		Line1:      fields[fieldShippingAddress1],
		Line2:      fields[fieldShippingAddress2],
		City:       fields[fieldShippingCity],
		Region:     fields[fieldShippingState],
		PostalCode: fields[fieldShippingPostalCode],
		Country:    fields[fieldShippingCountry],
	}
	if err := address.Validate(); err != nil {
		return domain.Address{}, fmt.Errorf("%w: order %s: %w", ports.ErrFieldMissing, orderID, err)
	}

	return address, nil
}

// FetchOrderTotals reads one row per ordered document. Shipping comes from the first
// shipment of the order group, or zero when the order has none.
func (g *OrderGateway) FetchOrderTotals(ctx context.Context, orderID string) (domain.OrderTotals, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	query := `
		SELECT d.order_group_id,
		       d.price,
		       COALESCE(s.shipping_amount, 0),
		       g.handling_charge
		FROM ordered_documents d
		INNER JOIN order_groups g ON g.order_group_id = d.order_group_id
		LEFT JOIN LATERAL (
			SELECT sh.shipping_amount
			FROM shipments sh
			WHERE sh.order_group_id = d.order_group_id
			ORDER BY sh.shipment_id
			LIMIT 1
		) s ON TRUE
		WHERE d.order_group_id = $1
		ORDER BY d.document_id
	`

	rows, err := g.pool.Query(ctx, query, orderID)
	if err != nil {
		return domain.OrderTotals{}, fmt.Errorf("%w: query order totals: %w", ports.ErrDataUnavailable, err)
	}
	defer rows.Close()

	var totals domain.OrderTotals
	for rows.Next() {
		var (
			groupID       string
			priceCents    int64
			shippingCents int64
			handlingCents int64
		)
		if err := rows.Scan(&groupID, &priceCents, &shippingCents, &handlingCents); err != nil {
			return domain.OrderTotals{}, fmt.Errorf("%w: scan order totals: %w", ports.ErrDataUnavailable, err)
		}
		totals.LineItems = append(totals.LineItems, domain.LineItemAmount{
			OrderGroupID: groupID,
			Price:        domain.AmountFromCents(priceCents),
		})
		totals.ShippingCharge = domain.AmountFromCents(shippingCents)
		totals.HandlingCharge = domain.AmountFromCents(handlingCents)
	}

	if err := rows.Err(); err != nil {
		return domain.OrderTotals{}, fmt.Errorf("%w: iterate order totals: %w", ports.ErrDataUnavailable, err)
	}

	if len(totals.LineItems) == 0 {
		return domain.OrderTotals{}, fmt.Errorf("%w: %w: %s", ports.ErrDataUnavailable, ports.ErrOrderNotFound, orderID)
	}

	return totals, nil
}
