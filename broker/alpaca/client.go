// Package alpaca is the HTTP broker adapter for Alpaca's trading API.
package alpaca

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/rustyeddy/livetrade/broker"
)

const (
	PaperURL = "https://paper-api.alpaca.markets"
	LiveURL  = "https://api.alpaca.markets"

	DefaultTimeout = 10 * time.Second
)

var ErrMissingCredentials = errors.New("alpaca: ALPACA_API_KEY and ALPACA_API_SECRET must be set")

type Config struct {
	APIKey    string        `json:"-" yaml:"-"`
	APISecret string        `json:"-" yaml:"-"`
	BaseURL   string        `json:"base_url" yaml:"base_url"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// BaseURL resolves an environment name to an endpoint.
func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "paper":
		return PaperURL, nil
	case "live":
		return LiveURL, nil
	default:
		return "", errors.Errorf("unknown alpaca env %q (want paper|live)", env)
	}
}

// Client implements broker.Broker. It never retries: a failed call is
// reported to the router, which decides what to do with it.
type Client struct {
	http      *resty.Client
	apiKey    string
	apiSecret string
}

var _ broker.Broker = (*Client)(nil)

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = PaperURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: hc, apiKey: cfg.APIKey, apiSecret: cfg.APISecret}
}

func (c *Client) request(ctx context.Context, out any) (*resty.Request, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, ErrMissingCredentials
	}
	r := c.http.R().
		SetContext(ctx).
		SetHeader("APCA-API-KEY-ID", c.apiKey).
		SetHeader("APCA-API-SECRET-KEY", c.apiSecret).
		ForceContentType("application/json")
	if out != nil {
		r.SetResult(out)
	}
	return r, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	r, err := c.request(ctx, out)
	if err != nil {
		return err
	}
	if body != nil {
		r.SetBody(body)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "alpaca %s %s", method, path)
	}
	if resp.IsError() {
		return errors.Errorf("alpaca api error %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var a apiAccount
	if err := c.do(ctx, http.MethodGet, "/v2/account", nil, &a); err != nil {
		return broker.Account{}, err
	}
	return a.toAccount(), nil
}

func (c *Client) ListPositions(ctx context.Context) (broker.Positions, error) {
	var ps []apiPosition
	if err := c.do(ctx, http.MethodGet, "/v2/positions", nil, &ps); err != nil {
		return nil, err
	}
	out := make(broker.Positions, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.toPosition())
	}
	return out, nil
}

func (c *Client) GetClock(ctx context.Context) (broker.Clock, error) {
	var ck apiClock
	if err := c.do(ctx, http.MethodGet, "/v2/clock", nil, &ck); err != nil {
		return broker.Clock{}, err
	}
	return broker.Clock{
		IsOpen:    ck.IsOpen,
		Timestamp: ck.Timestamp,
		NextOpen:  ck.NextOpen,
		NextClose: ck.NextClose,
	}, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	if req.Qty == nil && req.Notional == nil {
		return broker.Order{}, errors.New("alpaca: either qty or notional must be provided")
	}
	var o apiOrder
	if err := c.do(ctx, http.MethodPost, "/v2/orders", newOrderPayload(req), &o); err != nil {
		return broker.Order{}, err
	}
	return o.toOrder(), nil
}

func (c *Client) CancelAllOrders(ctx context.Context) ([]broker.CancelStatus, error) {
	var rs []apiCancel
	if err := c.do(ctx, http.MethodDelete, "/v2/orders", nil, &rs); err != nil {
		return nil, err
	}
	out := make([]broker.CancelStatus, 0, len(rs))
	for _, r := range rs {
		out = append(out, broker.CancelStatus{OrderID: r.ID, Status: r.Status})
	}
	return out, nil
}
