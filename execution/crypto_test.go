package execution

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/broker/alpaca"
	"github.com/rustyeddy/livetrade/risk"
)

// alpacaWithBTC serves an account holding 0.75 BTC reported the way Alpaca
// reports crypto positions, without the pair separator.
func alpacaWithBTC(t *testing.T, submits *atomic.Int32) *alpaca.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v2/account":
			w.Write([]byte(`{"id":"acct-1","currency":"USD","status":"ACTIVE","equity":"200000","buying_power":"100000","cash":"100000"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/positions":
			w.Write([]byte(`[{"symbol":"BTCUSD","asset_class":"crypto","qty":"0.75","market_value":"60000"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/orders":
			submits.Add(1)
			w.Write([]byte(`{"id":"ord-1","client_order_id":"c1","symbol":"BTC/USD","side":"sell","type":"market","time_in_force":"gtc","status":"accepted"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return alpaca.NewClient(alpaca.Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestCryptoBuyCountsBrokerPosition(t *testing.T) {
	t.Parallel()

	var submits atomic.Int32
	sink := &recordingSink{}
	r := NewRouter(alpacaWithBTC(t, &submits),
		WithLimits(risk.Limits{MaxPositionNotional: fp(61000)}),
		WithAlerts(sink),
	)

	_, err := r.Place(context.Background(), risk.OrderIntent{
		Symbol: "BTC/USD", Side: broker.Buy, AssetClass: broker.Crypto, Notional: fp(5000),
	})
	require.Error(t, err)
	require.True(t, IsRejection(err), "got %v", err)

	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, risk.CodePositionLimit, rej.Violation.Code)
	assert.Zero(t, submits.Load(), "broker must not see an order over the position cap")
	assert.Len(t, sink.all(), 1)
}

func TestCryptoSellCoveredByBrokerPosition(t *testing.T) {
	t.Parallel()

	var submits atomic.Int32
	r := NewRouter(alpacaWithBTC(t, &submits))

	ord, err := r.Place(context.Background(), risk.OrderIntent{
		Symbol: "BTC/USD", Side: broker.Sell, AssetClass: broker.Crypto, Qty: fp(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", ord.ID)
	assert.Equal(t, int32(1), submits.Load())

	_, err = r.Place(context.Background(), risk.OrderIntent{
		Symbol: "BTC/USD", Side: broker.Sell, AssetClass: broker.Crypto, Qty: fp(1),
	})
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, risk.CodeShortSale, rej.Violation.Code)
	assert.Equal(t, 0.75, rej.Details()["current_qty"])
}
