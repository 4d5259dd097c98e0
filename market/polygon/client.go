// Package polygon is the market-data adapter for Polygon's REST API.
package polygon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/market"
)

const (
	DefaultURL     = "https://api.polygon.io"
	DefaultTimeout = 10 * time.Second
)

var ErrMissingAPIKey = errors.New("polygon: POLYGON_API_KEY must be set")

type Config struct {
	APIKey  string        `json:"-" yaml:"-"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

type Client struct {
	http   *resty.Client
	apiKey string
}

var _ market.Quoter = (*Client)(nil)

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:   resty.New().SetBaseURL(strings.TrimSuffix(base, "/")).SetTimeout(timeout),
		apiKey: cfg.APIKey,
	}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("apiKey", c.apiKey).
		ForceContentType("application/json").
		SetResult(out).
		Get(path)
	if err != nil {
		return errors.Wrapf(err, "polygon GET %s", path)
	}
	if resp.IsError() {
		return errors.Errorf("polygon api error %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// CryptoTicker turns "btc-usd" or "BTC/USD" into Polygon's "X:BTCUSD".
// Symbols without a separator are returned upper-cased.
func CryptoTicker(symbol string) string {
	cleaned := strings.ToUpper(strings.ReplaceAll(symbol, "-", "/"))
	base, quote, ok := strings.Cut(cleaned, "/")
	if !ok {
		return cleaned
	}
	return "X:" + base + quote
}

type nbboResponse struct {
	Results struct {
		Bid     float64 `json:"p"`
		Ask     float64 `json:"P"`
		BidSize float64 `json:"s"`
		AskSize float64 `json:"S"`
		Time    int64   `json:"t"` // unix nanoseconds
	} `json:"results"`
}

type cryptoLastResponse struct {
	Last struct {
		Bid       float64 `json:"bid"`
		Ask       float64 `json:"ask"`
		BidSize   float64 `json:"bidSize"`
		AskSize   float64 `json:"askSize"`
		Timestamp int64   `json:"timestamp"` // unix milliseconds
	} `json:"last"`
}

// LastQuote returns the latest NBBO for equities or the last crypto quote.
func (c *Client) LastQuote(ctx context.Context, symbol string, asset broker.AssetClass) (market.Quote, error) {
	if asset == broker.Crypto {
		return c.lastCryptoQuote(ctx, symbol)
	}
	sym := strings.ToUpper(symbol)
	var r nbboResponse
	if err := c.get(ctx, "/v2/last/nbbo/"+sym, nil, &r); err != nil {
		return market.Quote{}, err
	}
	q := market.Quote{
		Symbol:  sym,
		Bid:     r.Results.Bid,
		Ask:     r.Results.Ask,
		BidSize: r.Results.BidSize,
		AskSize: r.Results.AskSize,
	}
	if r.Results.Time > 0 {
		q.Timestamp = time.Unix(0, r.Results.Time).UTC()
	}
	return q, nil
}

func (c *Client) lastCryptoQuote(ctx context.Context, symbol string) (market.Quote, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(symbol, "-", "/"))
	base, quote, ok := strings.Cut(cleaned, "/")
	if !ok {
		return market.Quote{}, fmt.Errorf("crypto symbol must be like BTC/USD, got %q", symbol)
	}
	var r cryptoLastResponse
	if err := c.get(ctx, fmt.Sprintf("/v2/last/crypto/%s/%s", base, quote), nil, &r); err != nil {
		return market.Quote{}, err
	}
	q := market.Quote{
		Symbol:  cleaned,
		Bid:     r.Last.Bid,
		Ask:     r.Last.Ask,
		BidSize: r.Last.BidSize,
		AskSize: r.Last.AskSize,
	}
	if r.Last.Timestamp > 0 {
		q.Timestamp = time.UnixMilli(r.Last.Timestamp).UTC()
	}
	return q, nil
}

// AggregatesRequest mirrors the path segments of the aggregates endpoint.
// Start and End are YYYY-MM-DD dates or unix millisecond timestamps.
type AggregatesRequest struct {
	Symbol     string
	AssetClass broker.AssetClass
	Start      string
	End        string
	Multiplier int    // default 1
	Timespan   string // minute, hour, day... default minute
}

type aggsResponse struct {
	Results []struct {
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
		Time   int64   `json:"t"` // unix milliseconds
	} `json:"results"`
}

func (c *Client) Aggregates(ctx context.Context, req AggregatesRequest) ([]market.Bar, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Start == "" || req.End == "" {
		return nil, fmt.Errorf("start and end are required")
	}
	if req.Multiplier <= 0 {
		req.Multiplier = 1
	}
	if req.Timespan == "" {
		req.Timespan = "minute"
	}
	ticker := strings.ToUpper(req.Symbol)
	if req.AssetClass == broker.Crypto {
		ticker = CryptoTicker(req.Symbol)
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		ticker, req.Multiplier, req.Timespan, req.Start, req.End)

	var r aggsResponse
	if err := c.get(ctx, path, nil, &r); err != nil {
		return nil, err
	}

	bars := make([]market.Bar, 0, len(r.Results))
	for _, b := range r.Results {
		bars = append(bars, market.Bar{
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Time:   time.UnixMilli(b.Time).UTC(),
		})
	}
	return bars, nil
}
