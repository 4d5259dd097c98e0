package alpaca

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/livetrade/broker"
)

// number decodes Alpaca's string-encoded decimals. Null, empty and
// unparseable values decode to nil instead of failing the whole response.
type number struct {
	v *float64
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		n.v = nil
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		n.v = nil
		return nil
	}
	f := d.InexactFloat64()
	n.v = &f
	return nil
}

func (n number) orZero() float64 {
	if n.v == nil {
		return 0
	}
	return *n.v
}

type apiAccount struct {
	ID          string `json:"id"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Equity      number `json:"equity"`
	BuyingPower number `json:"buying_power"`
	Cash        number `json:"cash"`
}

func (a apiAccount) toAccount() broker.Account {
	return broker.Account{
		ID:          a.ID,
		Currency:    a.Currency,
		Status:      a.Status,
		Equity:      a.Equity.v,
		BuyingPower: a.BuyingPower.v,
		Cash:        a.Cash.v,
	}
}

type apiPosition struct {
	Symbol      string `json:"symbol"`
	AssetClass  string `json:"asset_class"`
	Qty         number `json:"qty"`
	MarketValue number `json:"market_value"`
}

func (p apiPosition) toPosition() broker.Position {
	return broker.Position{
		Symbol:      p.Symbol,
		AssetClass:  p.AssetClass,
		Qty:         p.Qty.orZero(),
		MarketValue: p.MarketValue.orZero(),
	}
}

type apiClock struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

type apiOrder struct {
	ID             string    `json:"id"`
	ClientOrderID  string    `json:"client_order_id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"`
	Type           string    `json:"type"`
	TimeInForce    string    `json:"time_in_force"`
	Status         string    `json:"status"`
	Qty            number    `json:"qty"`
	Notional       number    `json:"notional"`
	FilledQty      number    `json:"filled_qty"`
	FilledAvgPrice number    `json:"filled_avg_price"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

func (o apiOrder) toOrder() broker.Order {
	return broker.Order{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          broker.Side(o.Side),
		Type:          broker.OrderType(o.Type),
		TimeInForce:   broker.TimeInForce(o.TimeInForce),
		Status:        o.Status,
		Qty:           o.Qty.v,
		Notional:      o.Notional.v,
		FilledQty:     o.FilledQty.orZero(),
		FilledAvg:     o.FilledAvgPrice.v,
		SubmittedAt:   o.SubmittedAt,
	}
}

type apiCancel struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
}

type orderPayload struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Qty           string `json:"qty,omitempty"`
	Notional      string `json:"notional,omitempty"`
	LimitPrice    string `json:"limit_price,omitempty"`
	StopPrice     string `json:"stop_price,omitempty"`
	TimeInForce   string `json:"time_in_force,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

func newOrderPayload(req broker.OrderRequest) orderPayload {
	typ := req.Type
	if typ == "" {
		typ = broker.Market
	}
	return orderPayload{
		Symbol:        req.Symbol,
		Side:          string(req.Side),
		Type:          string(typ),
		Qty:           decString(req.Qty),
		Notional:      decString(req.Notional),
		LimitPrice:    decString(req.LimitPrice),
		StopPrice:     decString(req.StopPrice),
		TimeInForce:   string(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}
}

func decString(v *float64) string {
	if v == nil {
		return ""
	}
	return decimal.NewFromFloat(*v).String()
}
