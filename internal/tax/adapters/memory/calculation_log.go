package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dejobratic/salestax/internal/tax/ports"
)

// CalculationLog retains calculation records in memory.
type CalculationLog struct {
	mu      sync.RWMutex
	records []ports.CalculationRecord
}

// NewCalculationLog creates a new in-memory calculation log.
func NewCalculationLog() *CalculationLog {
	return &CalculationLog{}
}

// Record appends a calculation record.
func (l *CalculationLog) Record(_ context.Context, record ports.CalculationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// List returns records for an order, newest first. Pagination is 1-based.
func (l *CalculationLog) List(_ context.Context, filter ports.ListFilter) ([]ports.CalculationRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []ports.CalculationRecord
	for _, record := range l.records {
		if filter.OrderID != "" && record.OrderID != filter.OrderID {
			continue
		}
		result = append(result, record)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []ports.CalculationRecord{}, nil
	}

	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}

	slice := make([]ports.CalculationRecord, end-start)
	copy(slice, result[start:end])

	return slice, nil
}
