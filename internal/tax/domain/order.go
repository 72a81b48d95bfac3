package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Address is the destination of an order as entered on the shipping step.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// MissingFields lists the required address fields that are blank.
func (a Address) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(a.Region) == "" {
		missing = append(missing, "region")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

// Validate ensures the fields a tax engine needs to resolve a jurisdiction are present.
func (a Address) Validate() error {
	if missing := a.MissingFields(); len(missing) > 0 {
		return errors.New("address is missing " + strings.Join(missing, ", "))
	}
	return nil
}

// LineItemAmount is the price of one ordered document within an order group.
type LineItemAmount struct {
	OrderGroupID string
	Price        decimal.Decimal
}

// OrderTotals holds the charge rows read for a single order.
type OrderTotals struct {
	LineItems      []LineItemAmount
	ShippingCharge decimal.Decimal
	HandlingCharge decimal.Decimal
}

// Subtotal sums every line item price.
func (t OrderTotals) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range t.LineItems {
		sum = sum.Add(item.Price)
	}
	return sum
}

// TaxableBase is the subtotal plus one shipping and one handling charge.
func (t OrderTotals) TaxableBase() decimal.Decimal {
	return t.Subtotal().Add(t.ShippingCharge).Add(t.HandlingCharge)
}

// OrderContext is the immutable view of an order for the duration of one calculation.
type OrderContext struct {
	OrderID string
	Address Address
	Totals  OrderTotals
}

// TaxableBase returns the amount sent to the tax engine.
func (o OrderContext) TaxableBase() decimal.Decimal {
	return o.Totals.TaxableBase()
}

// AmountFromCents converts an integer minor-unit value to currency units.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
