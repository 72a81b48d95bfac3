package queries_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dejobratic/salestax/internal/tax/app/queries"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLog struct {
	listFn func(ctx context.Context, filter ports.ListFilter) ([]ports.CalculationRecord, error)
}

func (m *mockLog) Record(context.Context, ports.CalculationRecord) error { return nil }

func (m *mockLog) List(ctx context.Context, filter ports.ListFilter) ([]ports.CalculationRecord, error) {
	return m.listFn(ctx, filter)
}

func TestListCalculations(t *testing.T) {
	t.Run("passes trimmed filter to the log", func(t *testing.T) {
		var got ports.ListFilter
		log := &mockLog{listFn: func(_ context.Context, filter ports.ListFilter) ([]ports.CalculationRecord, error) {
			got = filter
			return []ports.CalculationRecord{{OrderID: "ORD-1"}}, nil
		}}

		records, err := queries.NewListCalculationsQueryHandler(log).Handle(context.Background(),
			queries.ListCalculationsQuery{OrderID: " ORD-1 ", Page: 2, PageSize: 10})

		require.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, ports.ListFilter{OrderID: "ORD-1", Page: 2, PageSize: 10}, got)
	})

	t.Run("rejects invalid queries before reaching the log", func(t *testing.T) {
		log := &mockLog{listFn: func(context.Context, ports.ListFilter) ([]ports.CalculationRecord, error) {
			t.Fatal("log must not be queried")
			return nil, nil
		}}
		handler := queries.NewListCalculationsQueryHandler(log)

		for _, q := range []queries.ListCalculationsQuery{
			{OrderID: ""},
			{OrderID: "ORD-1", Page: -1},
			{OrderID: "ORD-1", Page: 10001},
			{OrderID: "ORD-1", Page: math.MaxInt},
			{OrderID: "ORD-1", PageSize: 101},
		} {
			_, err := handler.Handle(context.Background(), q)
			assert.ErrorIs(t, err, queries.ErrInvalidQuery, "%+v", q)
		}
	})

	t.Run("propagates log errors", func(t *testing.T) {
		boom := errors.New("query tax calculations: timeout")
		log := &mockLog{listFn: func(context.Context, ports.ListFilter) ([]ports.CalculationRecord, error) {
			return nil, boom
		}}

		_, err := queries.NewListCalculationsQueryHandler(log).Handle(context.Background(),
			queries.ListCalculationsQuery{OrderID: "ORD-1"})

		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, queries.ErrInvalidQuery)
	})
}
