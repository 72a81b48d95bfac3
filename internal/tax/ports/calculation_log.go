package ports

import (
	"context"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/shopspring/decimal"
)

// CalculationRecord is the persisted summary of one calculation.
type CalculationRecord struct {
	ID           string                    `json:"id"`
	OrderID      string                    `json:"order_id"`
	Outcome      domain.Outcome            `json:"outcome"`
	FailedStage  domain.Stage              `json:"failed_stage,omitempty"`
	ErrorKind    domain.ErrorKind          `json:"error_kind,omitempty"`
	TaxableBase  decimal.Decimal           `json:"taxable_base"`
	TaxAmount    decimal.Decimal           `json:"tax_amount"`
	CurrencyCode string                    `json:"currency_code"`
	Notification domain.NotificationStatus `json:"notification"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// CalculationLog keeps an audit trail of calculations. It is never read back
// to answer a calculation.
type CalculationLog interface {
	Record(ctx context.Context, record CalculationRecord) error
	List(ctx context.Context, filter ListFilter) ([]CalculationRecord, error)
}

// ListFilter narrows calculation log queries by order and pagination.
type ListFilter struct {
	OrderID  string
	Page     int
	PageSize int
}
