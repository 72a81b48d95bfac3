package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/salestax/internal/tax/ports"
)

const (
	maxPageSize = 100
	maxPage     = 10000
)

// ErrInvalidQuery marks a query rejected before reaching the log.
var ErrInvalidQuery = errors.New("invalid query")

// ListCalculationsQuery requests the recorded calculations of one order.
type ListCalculationsQuery struct {
	OrderID  string
	Page     int
	PageSize int
}

// ListCalculationsQueryHandler executes ListCalculationsQuery against the calculation log.
type ListCalculationsQueryHandler struct {
	log ports.CalculationLog
}

// NewListCalculationsQueryHandler constructs a ListCalculationsQueryHandler.
func NewListCalculationsQueryHandler(log ports.CalculationLog) *ListCalculationsQueryHandler {
	return &ListCalculationsQueryHandler{log: log}
}

// Handle validates the query and returns matching records, newest first.
func (h *ListCalculationsQueryHandler) Handle(ctx context.Context, query ListCalculationsQuery) ([]ports.CalculationRecord, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return h.log.List(ctx, ports.ListFilter{
		OrderID:  strings.TrimSpace(query.OrderID),
		Page:     query.Page,
		PageSize: query.PageSize,
	})
}

// Validate ensures the query has valid parameters.
func (q ListCalculationsQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidQuery)
	}
	if q.Page < 0 || q.Page > maxPage {
		return fmt.Errorf("%w: page must be between 0 and %d", ErrInvalidQuery, maxPage)
	}
	if q.PageSize < 0 || q.PageSize > maxPageSize {
		return fmt.Errorf("%w: page_size must be between 0 and %d", ErrInvalidQuery, maxPageSize)
	}
	return nil
}
