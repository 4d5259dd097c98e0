package risk

import "github.com/rustyeddy/livetrade/broker"

// Limits configures the pre-trade checks. A nil limit disables its check;
// zero is a real limit, not "unset".
type Limits struct {
	MaxOrderNotional     *float64 `json:"max_order_notional_usd,omitempty" yaml:"max_order_notional_usd,omitempty"`
	MaxOrderPctEquity    *float64 `json:"max_order_pct_equity,omitempty" yaml:"max_order_pct_equity,omitempty"`
	MaxPositionNotional  *float64 `json:"max_position_notional_usd,omitempty" yaml:"max_position_notional_usd,omitempty"`
	MaxPositionPctEquity *float64 `json:"max_position_pct_equity,omitempty" yaml:"max_position_pct_equity,omitempty"`
	MaxDailyLossPct      *float64 `json:"max_daily_loss_pct,omitempty" yaml:"max_daily_loss_pct,omitempty"`
	AllowShort           bool     `json:"allow_short" yaml:"allow_short"`
}

// SizingConfigured reports whether any check needs the order notional.
func (l Limits) SizingConfigured() bool {
	return l.MaxOrderNotional != nil || l.MaxOrderPctEquity != nil ||
		l.MaxPositionNotional != nil || l.MaxPositionPctEquity != nil
}

// OrderIntent is a request to trade as produced by the decision loop.
// Exactly one of Qty or Notional must be set.
type OrderIntent struct {
	Symbol     string            `json:"symbol" yaml:"symbol"`
	Side       broker.Side       `json:"side" yaml:"side"`
	AssetClass broker.AssetClass `json:"asset_class,omitempty" yaml:"asset_class,omitempty"`

	Qty            *float64 `json:"qty,omitempty" yaml:"qty,omitempty"`
	Notional       *float64 `json:"notional,omitempty" yaml:"notional,omitempty"`
	EstimatedPrice *float64 `json:"estimated_price,omitempty" yaml:"estimated_price,omitempty"`

	OrderType   broker.OrderType   `json:"order_type,omitempty" yaml:"order_type,omitempty"`
	LimitPrice  *float64           `json:"limit_price,omitempty" yaml:"limit_price,omitempty"`
	StopPrice   *float64           `json:"stop_price,omitempty" yaml:"stop_price,omitempty"`
	TimeInForce broker.TimeInForce `json:"time_in_force,omitempty" yaml:"time_in_force,omitempty"`
}

// DailyState is the start-of-day equity baseline for the daily-loss breaker.
type DailyState struct {
	Date        string  `json:"date"`
	EquityStart float64 `json:"equity_start"`
}
