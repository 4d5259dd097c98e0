package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(t *testing.T, j *SQLite) time.Time {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	recs := []OrderRecord{
		{ClientOrderID: "a", RunID: "r1", Time: base, Symbol: "AAPL", Side: "buy", Status: StatusSubmitted, Qty: fp(1)},
		{ClientOrderID: "b", RunID: "r1", Time: base.Add(time.Minute), Symbol: "MSFT", Side: "buy", Status: StatusRejected, RejectType: "order_notional", Notional: fp(5000)},
		{ClientOrderID: "c", RunID: "r2", Time: base.Add(2 * time.Minute), Symbol: "AAPL", Side: "sell", Status: StatusFailed, Reason: "timeout", Qty: fp(1)},
		{ClientOrderID: "d", RunID: "r2", Time: base.Add(3 * time.Minute), Symbol: "AAPL", Side: "buy", Status: StatusSubmitted, Qty: fp(2)},
	}
	for _, r := range recs {
		require.NoError(t, j.RecordOrder(ctx, r))
	}
	return base
}

func TestListOrdersFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()
	base := seedOrders(t, j)

	tests := []struct {
		name string
		f    OrderFilter
		want []string
	}{
		{"all newest first", OrderFilter{}, []string{"d", "c", "b", "a"}},
		{"symbol", OrderFilter{Symbol: "AAPL"}, []string{"d", "c", "a"}},
		{"status", OrderFilter{Status: StatusRejected}, []string{"b"}},
		{"run", OrderFilter{RunID: "r1"}, []string{"b", "a"}},
		{"since", OrderFilter{Since: base.Add(2 * time.Minute)}, []string{"d", "c"}},
		{"limit", OrderFilter{Limit: 2}, []string{"d", "c"}},
		{"combined", OrderFilter{Symbol: "AAPL", Status: StatusSubmitted}, []string{"d", "a"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.ListOrders(ctx, tt.f)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ClientOrderID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListOrdersEmpty(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	got, err := j.ListOrders(context.Background(), OrderFilter{Symbol: "NONE"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRunsOrderAndLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		at := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, j.RecordRun(ctx, RunRecord{RunID: id, Signature: "s", StartedAt: at, FinishedAt: at, Status: RunCompleted}))
	}

	runs, err := j.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].RunID)
	assert.Equal(t, "r2", runs[1].RunID)
	assert.Equal(t, "[]", runs[0].Positions)
}
