package broker

import (
	"context"
	"strings"
	"time"
)

// Broker is the execution venue. Every call is a synchronous request; the
// implementation owns timeouts and reports any non-2xx response as an error.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	ListPositions(ctx context.Context) (Positions, error)
	GetClock(ctx context.Context) (Clock, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelAllOrders(ctx context.Context) ([]CancelStatus, error)
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide normalises case and reports whether s names a known side.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}

type AssetClass string

const (
	Equity AssetClass = "equity"
	Crypto AssetClass = "crypto"
)

// ParseAssetClass defaults an empty value to Equity.
func ParseAssetClass(s string) (AssetClass, bool) {
	switch AssetClass(strings.ToLower(strings.TrimSpace(s))) {
	case "", Equity:
		return Equity, true
	case Crypto:
		return Crypto, true
	}
	return "", false
}

// Fractional reports whether the asset trades in fractional units.
func (a AssetClass) Fractional() bool { return a == Crypto }

type OrderType string

const (
	Market    OrderType = "market"
	Limit     OrderType = "limit"
	Stop      OrderType = "stop"
	StopLimit OrderType = "stop_limit"
)

type TimeInForce string

const (
	Day TimeInForce = "day"
	GTC TimeInForce = "gtc"
	IOC TimeInForce = "ioc"
	FOK TimeInForce = "fok"
)

// DefaultTimeInForce is gtc for crypto and day for everything else.
func DefaultTimeInForce(a AssetClass) TimeInForce {
	if a == Crypto {
		return GTC
	}
	return Day
}

// Account is a point-in-time snapshot. Nil figures were absent or could not
// be parsed; consumers must treat them as unknown.
type Account struct {
	ID          string
	Currency    string
	Status      string
	Equity      *float64
	BuyingPower *float64
	Cash        *float64
}

type Position struct {
	Symbol      string
	AssetClass  string
	Qty         float64
	MarketValue float64
}

type Positions []Position

// Find returns the position for symbol, or a zero position when none is held.
// Symbols match by CanonicalSymbol, so BTC/USD finds a BTCUSD position.
func (ps Positions) Find(symbol string) Position {
	want := CanonicalSymbol(symbol)
	for _, p := range ps {
		if CanonicalSymbol(p.Symbol) == want {
			return p
		}
	}
	return Position{Symbol: symbol}
}

// CanonicalSymbol upper-cases s and drops pair separators. Brokers report
// crypto positions as BTCUSD while orders and quotes use BTC/USD.
func CanonicalSymbol(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '-' {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(s)))
}

type Clock struct {
	IsOpen    bool
	Timestamp time.Time
	NextOpen  time.Time
	NextClose time.Time
}

// OrderRequest carries exactly one of Qty or Notional.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Qty           *float64
	Notional      *float64
	Type          OrderType
	LimitPrice    *float64
	StopPrice     *float64
	TimeInForce   TimeInForce
	ClientOrderID string
}

type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          OrderType
	TimeInForce   TimeInForce
	Status        string
	Qty           *float64
	Notional      *float64
	FilledQty     float64
	FilledAvg     *float64
	SubmittedAt   time.Time
}

type CancelStatus struct {
	OrderID string
	Status  int
}

// Float returns a pointer to v. Handy for optional order fields.
func Float(v float64) *float64 { return &v }
