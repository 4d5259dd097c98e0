package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/livetrade/broker"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
	})
}

func TestBaseURL(t *testing.T) {
	got, err := BaseURL("paper")
	require.NoError(t, err)
	assert.Equal(t, PaperURL, got)

	got, err = BaseURL("LIVE")
	require.NoError(t, err)
	assert.Equal(t, LiveURL, got)

	_, err = BaseURL("sandbox")
	assert.Error(t, err)
}

func TestGetAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		w.Write([]byte(`{"id":"acct-1","currency":"USD","status":"ACTIVE","equity":"10250.75","buying_power":"n/a","cash":null}`))
	})

	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acct-1", acct.ID)
	require.NotNil(t, acct.Equity)
	assert.InDelta(t, 10250.75, *acct.Equity, 1e-9)
	assert.Nil(t, acct.BuyingPower, "unparseable figures decode as unknown")
	assert.Nil(t, acct.Cash)
}

func TestListPositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/positions", r.URL.Path)
		w.Write([]byte(`[
			{"symbol":"AAPL","asset_class":"us_equity","qty":"5","market_value":"950.50"},
			{"symbol":"BTCUSD","asset_class":"crypto","qty":"0.125","market_value":"-7500"}
		]`))
	})

	ps, err := c.ListPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, 5.0, ps.Find("AAPL").Qty)
	assert.InDelta(t, 950.5, ps.Find("AAPL").MarketValue, 1e-9)
	assert.InDelta(t, 0.125, ps.Find("BTCUSD").Qty, 1e-12)
}

func TestGetClock(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timestamp":"2024-01-02T15:04:05Z","is_open":true,"next_open":"2024-01-03T14:30:00Z","next_close":"2024-01-02T21:00:00Z"}`))
	})

	ck, err := c.GetClock(context.Background())
	require.NoError(t, err)
	assert.True(t, ck.IsOpen)
	assert.Equal(t, 2024, ck.NextOpen.Year())
}

func TestSubmitOrderPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"ord-1","client_order_id":"lt-1","symbol":"AAPL","side":"buy","type":"limit","time_in_force":"day","status":"accepted","qty":"3","filled_qty":"0"}`))
	})

	o, err := c.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol:        "AAPL",
		Side:          broker.Buy,
		Qty:           broker.Float(3),
		Type:          broker.Limit,
		LimitPrice:    broker.Float(187.25),
		TimeInForce:   broker.Day,
		ClientOrderID: "lt-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", got["symbol"])
	assert.Equal(t, "buy", got["side"])
	assert.Equal(t, "limit", got["type"])
	assert.Equal(t, "3", got["qty"])
	assert.Equal(t, "187.25", got["limit_price"])
	assert.Equal(t, "day", got["time_in_force"])
	assert.NotContains(t, got, "notional")

	assert.Equal(t, "ord-1", o.ID)
	assert.Equal(t, broker.Buy, o.Side)
	require.NotNil(t, o.Qty)
	assert.Equal(t, 3.0, *o.Qty)
	assert.Nil(t, o.Notional)
}

func TestSubmitOrderRequiresSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Fail(t, "broker must not be called")
	})
	_, err := c.SubmitOrder(context.Background(), broker.OrderRequest{Symbol: "AAPL", Side: broker.Buy})
	assert.Error(t, err)
}

func TestNon2xxIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"insufficient buying power"}`))
	})

	_, err := c.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol: "AAPL", Side: broker.Buy, Notional: broker.Float(100),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "insufficient buying power")
}

func TestCancelAllOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`[{"id":"a","status":200},{"id":"b","status":500}]`))
	})

	rs, err := c.CancelAllOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []broker.CancelStatus{{OrderID: "a", Status: 200}, {OrderID: "b", Status: 500}}, rs)
}

func TestMissingCredentials(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.GetAccount(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
