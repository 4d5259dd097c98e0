package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/market"
	"github.com/rustyeddy/livetrade/pkg/clock"
)

type stubQuoter struct {
	q   market.Quote
	err error
}

func (s stubQuoter) LastQuote(ctx context.Context, symbol string, asset broker.AssetClass) (market.Quote, error) {
	return s.q, s.err
}

func TestBuyQtyFillsAndRevalues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := NewEngine(10000)
	e.SetPrice("AAPL", 100)

	ord, err := e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(10), ClientOrderID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, ord.Status)
	assert.Equal(t, "c1", ord.ClientOrderID)
	assert.Equal(t, 10.0, ord.FilledQty)
	assert.NotEmpty(t, ord.ID)

	acct, err := e.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, *acct.Cash)
	assert.Equal(t, 10000.0, *acct.Equity)
	assert.Equal(t, 9000.0, *acct.BuyingPower)

	e.SetPrice("AAPL", 110)
	acct, _ = e.GetAccount(ctx)
	assert.Equal(t, 10100.0, *acct.Equity)

	pos, err := e.ListPositions(ctx)
	require.NoError(t, err)
	p := pos.Find("AAPL")
	assert.Equal(t, 10.0, p.Qty)
	assert.Equal(t, 1100.0, p.MarketValue)
	assert.Equal(t, "equity", p.AssetClass)
}

func TestBuyNotionalUsesQuote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := NewEngine(1000, WithQuoter(stubQuoter{q: market.Quote{Bid: 49, Ask: 50}}))
	ord, err := e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "BTC/USD", Side: broker.Buy, Notional: broker.Float(100)})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ord.FilledQty, 1e-12)
	assert.Equal(t, 50.0, *ord.FilledAvg)

	pos, _ := e.ListPositions(ctx)
	assert.Equal(t, "crypto", pos.Find("BTC/USD").AssetClass)
}

func TestSubmitErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := NewEngine(100)
	_, err := e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(1)})
	assert.ErrorIs(t, err, ErrNoPrice)

	e.SetPrice("AAPL", 200)
	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(1)})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Sell, Qty: broker.Float(1)})
	assert.ErrorIs(t, err, ErrShortingUnsupported)

	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(1), Notional: broker.Float(1)})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(0)})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	boom := errors.New("venue down")
	e.FailSubmit = func(broker.OrderRequest) error { return boom }
	_, err = e.SubmitOrder(ctx, broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy, Notional: broker.Float(10)})
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, e.Orders())
}

func TestRestingLimitAndCancelAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := NewEngine(10000)
	e.SetPrice("AAPL", 100)

	rest, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(1),
		Type: broker.Limit, LimitPrice: broker.Float(90),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNew, rest.Status)

	fill, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "AAPL", Side: broker.Buy, Qty: broker.Float(1),
		Type: broker.Limit, LimitPrice: broker.Float(101),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, fill.Status)

	st, err := e.CancelAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.Equal(t, rest.ID, st[0].OrderID)
	assert.Equal(t, 200, st[0].Status)

	orders := e.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, StatusCanceled, orders[0].Status)
	assert.Equal(t, StatusFilled, orders[1].Status)
}

func TestClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	e := NewEngine(0, WithClock(clock.NewFake(now)), WithMarketClosed())
	c, err := e.GetClock(context.Background())
	require.NoError(t, err)
	assert.False(t, c.IsOpen)
	assert.Equal(t, now, c.Timestamp)

	e.SetMarketOpen(true)
	c, _ = e.GetClock(context.Background())
	assert.True(t, c.IsOpen)
}
