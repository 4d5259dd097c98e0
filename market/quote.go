// Package market holds market-data types used for order sizing estimates.
package market

import (
	"context"
	"time"

	"github.com/rustyeddy/livetrade/broker"
)

// Quoter returns the latest top-of-book quote for a symbol.
type Quoter interface {
	LastQuote(ctx context.Context, symbol string, asset broker.AssetClass) (Quote, error)
}

// Quote is a top-of-book snapshot. Zero prices mean the feed did not
// report that side.
type Quote struct {
	Symbol    string
	Bid       float64
	Ask       float64
	BidSize   float64
	AskSize   float64
	Timestamp time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// EstimatePrice returns the price a market order on side would likely pay:
// the ask for buys and the bid for sells, falling back to the other side
// when one is missing. ok is false when neither side is known.
func (q Quote) EstimatePrice(side broker.Side) (price float64, ok bool) {
	first, second := q.Ask, q.Bid
	if side == broker.Sell {
		first, second = q.Bid, q.Ask
	}
	switch {
	case first > 0:
		return first, true
	case second > 0:
		return second, true
	}
	return 0, false
}

// Bar represents OHLCV aggregate data.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	time.Time
}
