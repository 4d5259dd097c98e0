// Package execution routes order intents through the risk gate to the
// broker and slices large orders over time.
package execution

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/alert"
	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/journal"
	"github.com/rustyeddy/livetrade/market"
	"github.com/rustyeddy/livetrade/pkg/clock"
	"github.com/rustyeddy/livetrade/pkg/id"
	"github.com/rustyeddy/livetrade/pkg/metrics"
	"github.com/rustyeddy/livetrade/risk"
)

// Router is the single entry point for orders. Place calls are
// serialized so every evaluation sees the account as left by the
// previous submission.
type Router struct {
	broker  broker.Broker
	limits  risk.Limits
	days    *risk.DayStore
	quoter  market.Quoter
	alerts  alert.Sink
	journal journal.Journal
	clock   clock.Clock
	twap    TWAPDefaults
	log     *logrus.Entry

	mu sync.Mutex
}

type Option func(*Router)

func WithLimits(l risk.Limits) Option { return func(r *Router) { r.limits = l } }

// WithDayStore enables the daily-loss breaker baseline.
func WithDayStore(s *risk.DayStore) Option { return func(r *Router) { r.days = s } }

// WithQuoter lets the router price qty orders that arrive without an
// estimated price.
func WithQuoter(q market.Quoter) Option { return func(r *Router) { r.quoter = q } }

func WithAlerts(s alert.Sink) Option { return func(r *Router) { r.alerts = s } }

func WithJournal(j journal.Journal) Option { return func(r *Router) { r.journal = j } }

func WithClock(c clock.Clock) Option { return func(r *Router) { r.clock = c } }

func WithTWAPDefaults(d TWAPDefaults) Option { return func(r *Router) { r.twap = d } }

func NewRouter(b broker.Broker, opts ...Option) *Router {
	r := &Router{
		broker: b,
		alerts: alert.Nop{},
		clock:  clock.Real{},
		twap:   DefaultTWAP,
		log:    logrus.WithField("component", "router"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) Limits() risk.Limits { return r.limits }

type runIDKey struct{}

// WithRunID tags every order placed under ctx with a session run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(runIDKey{}).(string)
	return s
}

// Normalize validates an intent and fills defaults. It makes no external
// calls.
func Normalize(in risk.OrderIntent) (risk.OrderIntent, error) {
	out := in
	out.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	if out.Symbol == "" {
		return out, requestErr("symbol", "is required")
	}

	side, ok := broker.ParseSide(string(in.Side))
	if !ok {
		return out, requestErr("side", "must be buy or sell, got %q", in.Side)
	}
	out.Side = side

	asset, ok := broker.ParseAssetClass(string(in.AssetClass))
	if !ok {
		return out, requestErr("asset_class", "must be equity or crypto, got %q", in.AssetClass)
	}
	out.AssetClass = asset

	switch {
	case in.Qty == nil && in.Notional == nil:
		return out, requestErr("", "one of qty or notional is required")
	case in.Qty != nil && in.Notional != nil:
		return out, requestErr("", "qty and notional are mutually exclusive")
	case in.Qty != nil && *in.Qty <= 0:
		return out, requestErr("qty", "must be positive")
	case in.Notional != nil && *in.Notional <= 0:
		return out, requestErr("notional", "must be positive")
	case in.EstimatedPrice != nil && *in.EstimatedPrice <= 0:
		return out, requestErr("estimated_price", "must be positive")
	}

	out.OrderType = broker.OrderType(strings.ToLower(strings.TrimSpace(string(in.OrderType))))
	switch out.OrderType {
	case "":
		out.OrderType = broker.Market
	case broker.Market:
	case broker.Limit:
		if in.LimitPrice == nil {
			return out, requestErr("limit_price", "is required for limit orders")
		}
	case broker.Stop:
		if in.StopPrice == nil {
			return out, requestErr("stop_price", "is required for stop orders")
		}
	case broker.StopLimit:
		if in.LimitPrice == nil || in.StopPrice == nil {
			return out, requestErr("", "stop_limit orders need limit_price and stop_price")
		}
	default:
		return out, requestErr("order_type", "unknown %q", in.OrderType)
	}

	out.TimeInForce = broker.TimeInForce(strings.ToLower(strings.TrimSpace(string(in.TimeInForce))))
	switch out.TimeInForce {
	case "":
		out.TimeInForce = broker.DefaultTimeInForce(asset)
	case broker.Day, broker.GTC, broker.IOC, broker.FOK:
	default:
		return out, requestErr("time_in_force", "unknown %q", in.TimeInForce)
	}
	return out, nil
}

// Place validates, risk-checks and submits one order.
//
// Errors are *RequestError, *RejectionError or *BrokerError. Rejections are
// handed to the alert sink before Place returns, after the router lock is
// released so a slow sink never stalls other orders.
func (r *Router) Place(ctx context.Context, in risk.OrderIntent) (broker.Order, error) {
	intent, err := Normalize(in)
	if err != nil {
		r.log.WithError(err).Warn("order request rejected")
		return broker.Order{}, err
	}
	metrics.OrdersAttempted.WithLabelValues(string(intent.Side)).Inc()

	ord, err := r.place(ctx, intent)
	var rej *RejectionError
	if errors.As(err, &rej) {
		r.alerts.Notify(ctx, alert.EventRiskLimit, rej.Details())
	}
	return ord, err
}

func (r *Router) place(ctx context.Context, intent risk.OrderIntent) (broker.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := attempt{
		intent:        intent,
		clientOrderID: id.ClientOrderID(),
		runID:         RunIDFrom(ctx),
	}

	switch intent.Side {
	case broker.Sell:
		if err := r.guardSell(ctx, &a); err != nil {
			return broker.Order{}, err
		}
	case broker.Buy:
		if err := r.gateBuy(ctx, &a); err != nil {
			return broker.Order{}, err
		}
	}

	ord, err := r.broker.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:        a.intent.Symbol,
		Side:          a.intent.Side,
		Qty:           a.intent.Qty,
		Notional:      a.intent.Notional,
		Type:          a.intent.OrderType,
		LimitPrice:    a.intent.LimitPrice,
		StopPrice:     a.intent.StopPrice,
		TimeInForce:   a.intent.TimeInForce,
		ClientOrderID: a.clientOrderID,
	})
	if err != nil {
		return broker.Order{}, r.fail(ctx, &a, "submit_order", err)
	}

	metrics.OrdersSubmitted.WithLabelValues(string(intent.Side)).Inc()
	r.record(ctx, &a, journal.StatusSubmitted, func(rec *journal.OrderRecord) {
		rec.BrokerOrderID = ord.ID
	})
	r.log.WithFields(logrus.Fields{
		"symbol":          intent.Symbol,
		"side":            intent.Side,
		"client_order_id": a.clientOrderID,
		"order_id":        ord.ID,
		"status":          ord.Status,
	}).Info("order submitted")
	return ord, nil
}

type attempt struct {
	intent        risk.OrderIntent
	clientOrderID string
	runID         string
}

// guardSell applies the short-sale guard. Sells never pass the limit
// evaluator so liquidation is not blocked by the daily breaker.
func (r *Router) guardSell(ctx context.Context, a *attempt) error {
	if r.limits.AllowShort || a.intent.Qty == nil {
		return nil
	}
	positions, err := r.broker.ListPositions(ctx)
	if err != nil {
		return r.fail(ctx, a, "list_positions", err)
	}
	if v := risk.CheckShortSale(r.limits, a.intent, positions.Find(a.intent.Symbol)); v != nil {
		return r.reject(ctx, a, *v)
	}
	return nil
}

func (r *Router) gateBuy(ctx context.Context, a *attempt) error {
	acct, err := r.broker.GetAccount(ctx)
	if err != nil {
		return r.fail(ctx, a, "get_account", err)
	}
	positions, err := r.broker.ListPositions(ctx)
	if err != nil {
		return r.fail(ctx, a, "list_positions", err)
	}

	var day *risk.DailyState
	if r.days != nil && r.limits.MaxDailyLossPct != nil && acct.Equity != nil {
		st := r.days.GetOrInit(*acct.Equity)
		day = &st
	}

	if a.intent.Qty != nil && a.intent.EstimatedPrice == nil && r.quoter != nil {
		r.estimatePrice(ctx, a)
	}

	d := risk.Evaluate(r.limits, a.intent, acct, positions.Find(a.intent.Symbol), day)
	if !d.Allowed {
		return r.reject(ctx, a, *d.Violation)
	}
	return nil
}

// estimatePrice fills EstimatedPrice from the last quote. Failure leaves it
// unset; the evaluator then fails closed if a sizing limit needs it.
func (r *Router) estimatePrice(ctx context.Context, a *attempt) {
	q, err := r.quoter.LastQuote(ctx, a.intent.Symbol, a.intent.AssetClass)
	if err != nil {
		r.log.WithError(err).WithField("symbol", a.intent.Symbol).Warn("quote for price estimate failed")
		return
	}
	if p, ok := q.EstimatePrice(a.intent.Side); ok {
		a.intent.EstimatedPrice = broker.Float(p)
	}
}

func (r *Router) reject(ctx context.Context, a *attempt, v risk.Violation) error {
	metrics.OrdersRejected.WithLabelValues(v.Code).Inc()
	r.log.WithFields(logrus.Fields{
		"symbol": v.Symbol,
		"type":   v.Code,
	}).Warn(v.Msg)

	r.record(ctx, a, journal.StatusRejected, func(rec *journal.OrderRecord) {
		rec.RejectType = v.Code
		rec.Reason = v.Msg
	})
	return &RejectionError{Violation: v}
}

func (r *Router) fail(ctx context.Context, a *attempt, op string, err error) error {
	metrics.OrdersFailed.WithLabelValues(string(a.intent.Side)).Inc()
	be := &BrokerError{Op: op, Err: err}
	r.log.WithError(err).WithFields(logrus.Fields{
		"symbol": a.intent.Symbol,
		"op":     op,
	}).Error("broker call failed")
	r.record(ctx, a, journal.StatusFailed, func(rec *journal.OrderRecord) {
		rec.Reason = be.Error()
	})
	return be
}

func (r *Router) record(ctx context.Context, a *attempt, status string, fill func(*journal.OrderRecord)) {
	if r.journal == nil {
		return
	}
	rec := journal.OrderRecord{
		ClientOrderID:  a.clientOrderID,
		RunID:          a.runID,
		Time:           r.clock.Now(),
		Symbol:         a.intent.Symbol,
		Side:           string(a.intent.Side),
		AssetClass:     string(a.intent.AssetClass),
		OrderType:      string(a.intent.OrderType),
		TimeInForce:    string(a.intent.TimeInForce),
		Qty:            a.intent.Qty,
		Notional:       a.intent.Notional,
		EstimatedPrice: a.intent.EstimatedPrice,
		Status:         status,
	}
	if fill != nil {
		fill(&rec)
	}
	// the journal must outlive a cancelled session
	if err := r.journal.RecordOrder(context.WithoutCancel(ctx), rec); err != nil {
		r.log.WithError(err).Error("journal order attempt")
	}
}
