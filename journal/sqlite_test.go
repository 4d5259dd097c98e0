package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "data", "journal.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func fp(v float64) *float64 { return &v }

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('orders','runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["orders"])
	assert.True(t, found["runs"])
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, path := newTestSQLite(t)
	require.NoError(t, j.RecordOrder(ctx, OrderRecord{ClientOrderID: "c1", Time: time.Now(), Symbol: "AAPL", Side: "buy", Status: StatusSubmitted}))
	require.NoError(t, j.Close())

	j2, err := NewSQLite(path)
	require.NoError(t, err)
	defer j2.Close()

	got, err := j2.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteRecordOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	rec := OrderRecord{
		ClientOrderID:  "lt-01HX",
		RunID:          "run-1",
		Time:           at,
		Symbol:         "AAPL",
		Side:           "buy",
		AssetClass:     "equity",
		OrderType:      "market",
		TimeInForce:    "day",
		Qty:            fp(10),
		EstimatedPrice: fp(189.25),
		Status:         StatusSubmitted,
		BrokerOrderID:  "b-1",
	}
	require.NoError(t, j.RecordOrder(ctx, rec))

	got, err := j.GetOrder(ctx, "lt-01HX")
	require.NoError(t, err)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.RunID, got.RunID)
	assert.True(t, got.Time.Equal(at))
	require.NotNil(t, got.Qty)
	assert.InDelta(t, 10, *got.Qty, 1e-9)
	assert.Nil(t, got.Notional)
	require.NotNil(t, got.EstimatedPrice)
	assert.InDelta(t, 189.25, *got.EstimatedPrice, 1e-9)
	assert.Equal(t, "b-1", got.BrokerOrderID)
}

func TestSQLiteGetOrderNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRecordRunUpserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(ctx, RunRecord{
		RunID: "r1", Signature: "gpt-live", StartedAt: start, FinishedAt: start, Status: "running",
	}))
	require.NoError(t, j.RecordRun(ctx, RunRecord{
		RunID: "r1", Signature: "gpt-live", StartedAt: start, FinishedAt: start.Add(time.Minute),
		Status: RunCompleted, Equity: fp(10000), Positions: `[{"symbol":"AAPL","qty":1}]`,
	}))

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunCompleted, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.Equal(start.Add(time.Minute)))
	require.NotNil(t, runs[0].Equity)
	assert.Equal(t, 10000.0, *runs[0].Equity)
	assert.Nil(t, runs[0].Cash)
	assert.Contains(t, runs[0].Positions, "AAPL")
}
