// Package paper is an in-process broker that fills marketable orders
// immediately at the last known price. It backs --paper runs and tests.
package paper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/market"
	"github.com/rustyeddy/livetrade/pkg/clock"
	"github.com/rustyeddy/livetrade/pkg/id"
)

var (
	ErrNoPrice             = errors.New("no price")
	ErrInsufficientFunds   = errors.New("insufficient buying power")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrShortingUnsupported = errors.New("short position would be opened")
)

const (
	StatusFilled   = "filled"
	StatusNew      = "new"
	StatusCanceled = "canceled"
)

type holding struct {
	asset    broker.AssetClass
	qty      float64
	avgPrice float64
}

var _ broker.Broker = (*Engine)(nil)

// Engine is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	cash       float64
	holdings   map[string]*holding
	prices     map[string]float64
	orders     []broker.Order
	marketOpen bool

	clock  clock.Clock
	quoter market.Quoter
	log    *logrus.Entry

	// AllowShort lets sells take a position below zero.
	AllowShort bool

	// FailSubmit, when set, is consulted before every fill. A non-nil
	// error is returned from SubmitOrder as if the venue refused it.
	FailSubmit func(req broker.OrderRequest) error
}

type Option func(*Engine)

// WithQuoter resolves fill prices from live quotes when no price was set.
func WithQuoter(q market.Quoter) Option { return func(e *Engine) { e.quoter = q } }

func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithMarketClosed starts the engine with the equity session closed.
func WithMarketClosed() Option { return func(e *Engine) { e.marketOpen = false } }

func NewEngine(cash float64, opts ...Option) *Engine {
	e := &Engine{
		cash:       cash,
		holdings:   make(map[string]*holding),
		prices:     make(map[string]float64),
		marketOpen: true,
		clock:      clock.Real{},
		log:        logrus.WithField("component", "paper"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetPrice records the last trade price used for fills and valuation.
func (e *Engine) SetPrice(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prices[symbol] = price
}

func (e *Engine) SetMarketOpen(open bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marketOpen = open
}

// Orders returns every order accepted so far, in submission order.
func (e *Engine) Orders() []broker.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]broker.Order, len(e.orders))
	copy(out, e.orders)
	return out
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	equity := e.cash
	for sym, h := range e.holdings {
		equity += h.qty * e.markLocked(sym, h)
	}
	return broker.Account{
		ID:          "paper",
		Currency:    "USD",
		Status:      "ACTIVE",
		Equity:      broker.Float(equity),
		BuyingPower: broker.Float(math.Max(0, e.cash)),
		Cash:        broker.Float(e.cash),
	}, nil
}

func (e *Engine) ListPositions(ctx context.Context) (broker.Positions, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(broker.Positions, 0, len(e.holdings))
	for sym, h := range e.holdings {
		if h.qty == 0 {
			continue
		}
		out = append(out, broker.Position{
			Symbol:      sym,
			AssetClass:  string(h.asset),
			Qty:         h.qty,
			MarketValue: h.qty * e.markLocked(sym, h),
		})
	}
	return out, nil
}

func (e *Engine) GetClock(ctx context.Context) (broker.Clock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return broker.Clock{IsOpen: e.marketOpen, Timestamp: e.clock.Now()}, nil
}

func (e *Engine) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	if err := validate(req); err != nil {
		return broker.Order{}, err
	}
	if e.FailSubmit != nil {
		if err := e.FailSubmit(req); err != nil {
			return broker.Order{}, err
		}
	}

	price, err := e.price(ctx, req)
	if err != nil {
		return broker.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ord := broker.Order{
		ID:            id.New(),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Qty:           req.Qty,
		Notional:      req.Notional,
		SubmittedAt:   e.clock.Now(),
	}
	if ord.Type == "" {
		ord.Type = broker.Market
	}

	if !marketable(req, price) {
		ord.Status = StatusNew
		e.orders = append(e.orders, ord)
		e.log.WithFields(logrus.Fields{"symbol": req.Symbol, "side": req.Side, "id": ord.ID}).Info("order resting")
		return ord, nil
	}

	var qty float64
	if req.Qty != nil {
		qty = *req.Qty
	} else {
		qty = *req.Notional / price
	}

	if err := e.fillLocked(req, qty, price); err != nil {
		return broker.Order{}, err
	}

	ord.Status = StatusFilled
	ord.FilledQty = qty
	ord.FilledAvg = broker.Float(price)
	e.orders = append(e.orders, ord)

	e.log.WithFields(logrus.Fields{
		"symbol": req.Symbol,
		"side":   req.Side,
		"qty":    qty,
		"price":  price,
		"id":     ord.ID,
	}).Info("order filled")
	return ord, nil
}

// CancelAllOrders cancels every resting order. Filled orders are untouched.
func (e *Engine) CancelAllOrders(ctx context.Context) ([]broker.CancelStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := []broker.CancelStatus{}
	for i := range e.orders {
		if e.orders[i].Status != StatusNew {
			continue
		}
		e.orders[i].Status = StatusCanceled
		out = append(out, broker.CancelStatus{OrderID: e.orders[i].ID, Status: http.StatusOK})
	}
	return out, nil
}

func (e *Engine) fillLocked(req broker.OrderRequest, qty, price float64) error {
	h := e.holdings[req.Symbol]
	if h == nil {
		h = &holding{asset: assetFor(req.Symbol)}
		e.holdings[req.Symbol] = h
	}

	switch req.Side {
	case broker.Buy:
		cost := qty * price
		if cost > e.cash+1e-9 {
			return fmt.Errorf("paper: %w: need %.2f have %.2f", ErrInsufficientFunds, cost, e.cash)
		}
		if h.qty >= 0 {
			h.avgPrice = (h.avgPrice*h.qty + cost) / (h.qty + qty)
		}
		h.qty += qty
		e.cash -= cost
	case broker.Sell:
		if !e.AllowShort && qty > h.qty+1e-9 {
			return fmt.Errorf("paper: %w: sell %v holding %v", ErrShortingUnsupported, qty, h.qty)
		}
		h.qty -= qty
		e.cash += qty * price
		if h.qty == 0 {
			h.avgPrice = 0
		}
	}
	e.prices[req.Symbol] = price
	return nil
}

// price resolves the fill price: the last set price, else a live quote.
func (e *Engine) price(ctx context.Context, req broker.OrderRequest) (float64, error) {
	e.mu.Lock()
	p, ok := e.prices[req.Symbol]
	q := e.quoter
	e.mu.Unlock()
	if ok && p > 0 {
		return p, nil
	}
	if q == nil {
		return 0, fmt.Errorf("paper: %w for %s", ErrNoPrice, req.Symbol)
	}
	quote, err := q.LastQuote(ctx, req.Symbol, assetFor(req.Symbol))
	if err != nil {
		return 0, fmt.Errorf("paper: quote %s: %w", req.Symbol, err)
	}
	p, ok = quote.EstimatePrice(req.Side)
	if !ok {
		return 0, fmt.Errorf("paper: %w for %s", ErrNoPrice, req.Symbol)
	}
	return p, nil
}

func (e *Engine) markLocked(sym string, h *holding) float64 {
	if p, ok := e.prices[sym]; ok {
		return p
	}
	return h.avgPrice
}

func validate(req broker.OrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("paper: %w: symbol is required", ErrInvalidOrder)
	}
	if (req.Qty == nil) == (req.Notional == nil) {
		return fmt.Errorf("paper: %w: exactly one of qty or notional", ErrInvalidOrder)
	}
	if (req.Qty != nil && *req.Qty <= 0) || (req.Notional != nil && *req.Notional <= 0) {
		return fmt.Errorf("paper: %w: size must be positive", ErrInvalidOrder)
	}
	if req.Side != broker.Buy && req.Side != broker.Sell {
		return fmt.Errorf("paper: %w: side %q", ErrInvalidOrder, req.Side)
	}
	return nil
}

func marketable(req broker.OrderRequest, price float64) bool {
	switch req.Type {
	case "", broker.Market:
		return true
	case broker.Limit:
		if req.LimitPrice == nil {
			return true
		}
		if req.Side == broker.Buy {
			return price <= *req.LimitPrice
		}
		return price >= *req.LimitPrice
	}
	// stop orders wait for a trigger the engine never sees
	return false
}

// assetFor treats pair-style symbols (BTC/USD, BTC-USD) as crypto.
func assetFor(symbol string) broker.AssetClass {
	for _, r := range symbol {
		if r == '/' || r == '-' {
			return broker.Crypto
		}
	}
	return broker.Equity
}
