package postgres

import (
	"context"
	"fmt"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CalculationLog struct {
	pool *pgxpool.Pool
}

func NewCalculationLog(pool *pgxpool.Pool) *CalculationLog {
	return &CalculationLog{pool: pool}
}

func (l *CalculationLog) Record(ctx context.Context, record ports.CalculationRecord) error {
	query := `
		INSERT INTO tax_calculations (
			id, order_id, outcome, failed_stage, error_kind,
			taxable_base, tax_amount, currency_code, notification, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := l.pool.Exec(ctx, query,
		record.ID,
		record.OrderID,
		string(record.Outcome),
		string(record.FailedStage),
		string(record.ErrorKind),
		record.TaxableBase.String(),
		record.TaxAmount.String(),
		record.CurrencyCode,
		string(record.Notification),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tax calculation: %w", err)
	}

	return nil
}

func (l *CalculationLog) List(ctx context.Context, filter ports.ListFilter) ([]ports.CalculationRecord, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := `
		SELECT id::text, order_id, outcome, failed_stage, error_kind,
		       taxable_base::text, tax_amount::text, currency_code, notification, created_at
		FROM tax_calculations
		WHERE ($1::text = '' OR order_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	offset := (page - 1) * pageSize

	rows, err := l.pool.Query(ctx, query, filter.OrderID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("query tax calculations: %w", err)
	}
	defer rows.Close()

	records := []ports.CalculationRecord{}
	for rows.Next() {
		var (
			record                 ports.CalculationRecord
			outcome, failedStage   string
			errorKind, notified    string
			taxableBase, taxAmount string
		)
		if err := rows.Scan(
			&record.ID,
			&record.OrderID,
			&outcome,
			&failedStage,
			&errorKind,
			&taxableBase,
			&taxAmount,
			&record.CurrencyCode,
			&notified,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tax calculation: %w", err)
		}

		record.Outcome = domain.Outcome(outcome)
		record.FailedStage = domain.Stage(failedStage)
		record.ErrorKind = domain.ErrorKind(errorKind)
		record.Notification = domain.NotificationStatus(notified)

		if record.TaxableBase, err = decimal.NewFromString(taxableBase); err != nil {
			return nil, fmt.Errorf("parse taxable base: %w", err)
		}
		if record.TaxAmount, err = decimal.NewFromString(taxAmount); err != nil {
			return nil, fmt.Errorf("parse tax amount: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax calculations: %w", err)
	}

	return records, nil
}
