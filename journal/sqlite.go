package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(ctx context.Context, r OrderRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO orders
		(client_order_id, run_id, time, symbol, side, asset_class, order_type, time_in_force,
		 qty, notional, estimated_price, status, broker_order_id, reject_type, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ClientOrderID, r.RunID, r.Time.UTC(), r.Symbol, r.Side, r.AssetClass, r.OrderType, r.TimeInForce,
		nullFloat(r.Qty), nullFloat(r.Notional), nullFloat(r.EstimatedPrice),
		r.Status, r.BrokerOrderID, r.RejectType, r.Reason,
	)
	return err
}

// RecordRun upserts by run id so a run can be written at start and again
// when it finishes.
func (j *SQLite) RecordRun(ctx context.Context, r RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	positions := r.Positions
	if positions == "" {
		positions = "[]"
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, signature, started_at, finished_at, status, error, equity, cash, buying_power, positions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status = excluded.status,
			error = excluded.error,
			equity = excluded.equity,
			cash = excluded.cash,
			buying_power = excluded.buying_power,
			positions = excluded.positions`,
		r.RunID, r.Signature, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Status, r.Error,
		nullFloat(r.Equity), nullFloat(r.Cash), nullFloat(r.BuyingPower), positions,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
