// Package session runs one trading session end to end and records how it
// went.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/alert"
	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/execution"
	"github.com/rustyeddy/livetrade/journal"
	"github.com/rustyeddy/livetrade/pkg/clock"
	"github.com/rustyeddy/livetrade/pkg/id"
	"github.com/rustyeddy/livetrade/pkg/metrics"
)

// Session is the body of a run, e.g. replaying a plan or an agent loop.
type Session interface {
	Run(ctx context.Context) error
}

// Func adapts a function to Session.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error { return f(ctx) }

const runningStatus = "running"

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Signature  string
	Status     string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
	Account    *broker.Account
	Positions  broker.Positions
}

type Runner struct {
	Broker  broker.Broker
	Journal journal.Journal
	Alerts  alert.Sink
	Clock   clock.Clock
}

type positionSnapshot struct {
	Symbol      string  `json:"symbol"`
	AssetClass  string  `json:"asset_class,omitempty"`
	Qty         float64 `json:"qty"`
	MarketValue float64 `json:"market_value"`
}

// Execute runs s under a fresh run id. Panics become errors. The run is
// journaled at start and finish, and a failed run raises live_run_error.
// The returned error is the session's own failure, if any.
func (r *Runner) Execute(ctx context.Context, signature string, s Session) (Summary, error) {
	clk := r.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	alerts := r.Alerts
	if alerts == nil {
		alerts = alert.Nop{}
	}

	sum := Summary{
		RunID:     id.RunID(),
		Signature: signature,
		StartedAt: clk.Now(),
	}
	log := logrus.WithFields(logrus.Fields{"component": "session", "run_id": sum.RunID, "signature": signature})
	log.Info("run started")

	r.record(ctx, log, sum, runningStatus)

	sum.Err = protect(execution.WithRunID(ctx, sum.RunID), s)
	sum.FinishedAt = clk.Now()
	sum.Status = journal.RunCompleted
	if sum.Err != nil {
		sum.Status = journal.RunError
	}

	r.snapshot(ctx, log, &sum)
	r.record(ctx, log, sum, sum.Status)
	metrics.Runs.WithLabelValues(sum.Status).Inc()

	if sum.Err != nil {
		log.WithError(sum.Err).Error("run failed")
		alerts.Notify(ctx, alert.EventRunError, map[string]any{
			"run_id":    sum.RunID,
			"signature": signature,
			"error":     sum.Err.Error(),
		})
		return sum, sum.Err
	}
	log.WithField("elapsed", sum.FinishedAt.Sub(sum.StartedAt)).Info("run completed")
	return sum, nil
}

func protect(ctx context.Context, s Session) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logrus.WithField("stack", string(debug.Stack())).Error("session panic")
			err = fmt.Errorf("session panic: %v", p)
		}
	}()
	return s.Run(ctx)
}

func (r *Runner) snapshot(ctx context.Context, log *logrus.Entry, sum *Summary) {
	if r.Broker == nil {
		return
	}
	// the snapshot is still wanted when the session was cancelled
	ctx = context.WithoutCancel(ctx)
	if acct, err := r.Broker.GetAccount(ctx); err != nil {
		log.WithError(err).Warn("account snapshot failed")
	} else {
		sum.Account = &acct
	}
	if ps, err := r.Broker.ListPositions(ctx); err != nil {
		log.WithError(err).Warn("positions snapshot failed")
	} else {
		sum.Positions = ps
	}
}

func (r *Runner) record(ctx context.Context, log *logrus.Entry, sum Summary, status string) {
	if r.Journal == nil {
		return
	}
	rec := journal.RunRecord{
		RunID:      sum.RunID,
		Signature:  sum.Signature,
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Status:     status,
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}
	if sum.Err != nil {
		rec.Error = sum.Err.Error()
	}
	if sum.Account != nil {
		rec.Equity, rec.Cash, rec.BuyingPower = sum.Account.Equity, sum.Account.Cash, sum.Account.BuyingPower
	}
	snap := make([]positionSnapshot, 0, len(sum.Positions))
	for _, p := range sum.Positions {
		snap = append(snap, positionSnapshot{Symbol: p.Symbol, AssetClass: p.AssetClass, Qty: p.Qty, MarketValue: p.MarketValue})
	}
	if b, err := json.Marshal(snap); err == nil {
		rec.Positions = string(b)
	}
	if err := r.Journal.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		log.WithError(err).Error("journal run")
	}
}
