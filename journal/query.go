package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

const orderColumns = `client_order_id, run_id, time, symbol, side, asset_class, order_type, time_in_force,
	qty, notional, estimated_price, status, broker_order_id, reject_type, reason`

// OrderFilter narrows ListOrders. Zero fields match everything.
type OrderFilter struct {
	Symbol string
	Status string
	RunID  string
	Since  time.Time
	Limit  int
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (OrderRecord, error) {
	var (
		rec                   OrderRecord
		qty, notional, estPrc sql.NullFloat64
	)
	err := s.Scan(
		&rec.ClientOrderID,
		&rec.RunID,
		&rec.Time,
		&rec.Symbol,
		&rec.Side,
		&rec.AssetClass,
		&rec.OrderType,
		&rec.TimeInForce,
		&qty,
		&notional,
		&estPrc,
		&rec.Status,
		&rec.BrokerOrderID,
		&rec.RejectType,
		&rec.Reason,
	)
	if err != nil {
		return OrderRecord{}, err
	}
	rec.Qty, rec.Notional, rec.EstimatedPrice = fromNull(qty), fromNull(notional), fromNull(estPrc)
	return rec, nil
}

// GetOrder returns the latest attempt recorded for a client order id.
func (j *SQLite) GetOrder(ctx context.Context, clientOrderID string) (OrderRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE client_order_id = ?
		ORDER BY id DESC LIMIT 1`, clientOrderID)

	rec, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderRecord{}, fmt.Errorf("order %q %w", clientOrderID, ErrNotFound)
	}
	return rec, err
}

// ListOrders returns matching attempts, newest first.
func (j *SQLite) ListOrders(ctx context.Context, f OrderFilter) ([]OrderRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if !f.Since.IsZero() {
		where = append(where, "time >= ?")
		args = append(args, f.Since.UTC())
	}

	q := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRuns returns the most recent runs first.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `
		SELECT run_id, signature, started_at, finished_at, status, error, equity, cash, buying_power, positions
		FROM runs
		ORDER BY started_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec              RunRecord
			equity, cash, bp sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.Signature,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.Status,
			&rec.Error,
			&equity,
			&cash,
			&bp,
			&rec.Positions,
		); err != nil {
			return nil, err
		}
		rec.Equity, rec.Cash, rec.BuyingPower = fromNull(equity), fromNull(cash), fromNull(bp)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
