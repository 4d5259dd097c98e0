package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/livetrade/broker"
)

// Violation codes double as the alert "type" field.
const (
	CodeDailyLoss       = "daily_loss"
	CodeNotionalUnknown = "notional_unknown"
	CodeOrderNotional   = "order_notional"
	CodeOrderPctEquity  = "order_pct_equity"
	CodeBuyingPower     = "buying_power"
	CodePositionLimit   = "position_limit"
	CodeShortSale       = "short_sale"
)

type Violation struct {
	Code   string
	Symbol string
	Msg    string

	// Extra carries figures worth reporting alongside the message,
	// e.g. current_qty for the short-sale guard.
	Extra map[string]any
}

func (v Violation) Error() string { return v.Msg }

// Details is the alert payload: {type, symbol, details, ...extra}.
func (v Violation) Details() map[string]any {
	d := map[string]any{
		"type":    v.Code,
		"symbol":  v.Symbol,
		"details": v.Msg,
	}
	for k, x := range v.Extra {
		d[k] = x
	}
	return d
}

type Decision struct {
	Allowed       bool
	OrderNotional *float64
	Violation     *Violation
}

func (d *Decision) reject(code, symbol, msg string) Decision {
	d.Allowed = false
	d.Violation = &Violation{Code: code, Symbol: symbol, Msg: msg}
	return *d
}

// Evaluate runs the buy-side checks in a fixed order and stops at the first
// failure. acct and pos must be fetched for this intent alone. day may be
// nil when no baseline is available, which disables the daily-loss check.
func Evaluate(
	lim Limits,
	intent OrderIntent,
	acct broker.Account,
	pos broker.Position,
	day *DailyState,
) Decision {
	d := Decision{Allowed: true, OrderNotional: OrderNotional(intent)}
	sym := intent.Symbol
	buy := intent.Side == broker.Buy

	// Daily-loss circuit breaker blocks new buys only.
	if buy && lim.MaxDailyLossPct != nil && acct.Equity != nil && day != nil && day.EquityStart > 0 {
		dd := Drawdown(day.EquityStart, *acct.Equity)
		if dd >= *lim.MaxDailyLossPct {
			return d.reject(CodeDailyLoss, sym, fmt.Sprintf(
				"Daily loss %s exceeds MAX_DAILY_LOSS_PCT %s", fmtPct(dd), fmtPct(*lim.MaxDailyLossPct)))
		}
	}

	if d.OrderNotional == nil {
		if lim.SizingConfigured() {
			return d.reject(CodeNotionalUnknown, sym,
				"estimated_price is required when qty is used with notional limits")
		}
		return d
	}
	notional := *d.OrderNotional

	if lim.MaxOrderNotional != nil && notional > *lim.MaxOrderNotional {
		return d.reject(CodeOrderNotional, sym, fmt.Sprintf(
			"Order notional %s exceeds MAX_ORDER_NOTIONAL_USD %s", fmtNum(notional), fmtNum(*lim.MaxOrderNotional)))
	}

	if lim.MaxOrderPctEquity != nil && acct.Equity != nil {
		if capN := *acct.Equity * *lim.MaxOrderPctEquity; notional > capN {
			return d.reject(CodeOrderPctEquity, sym, fmt.Sprintf(
				"Order notional %s exceeds MAX_ORDER_PCT_EQUITY %s (%s of equity %s)",
				fmtNum(notional), fmtNum(*lim.MaxOrderPctEquity), fmtNum(capN), fmtNum(*acct.Equity)))
		}
	}

	if buy && acct.BuyingPower != nil && notional > *acct.BuyingPower {
		d.reject(CodeBuyingPower, sym, fmt.Sprintf(
			"Insufficient buying power: order notional %s exceeds buying power %s",
			fmtNum(notional), fmtNum(*acct.BuyingPower)))
		d.Violation.Extra = map[string]any{"buying_power": *acct.BuyingPower}
		return d
	}

	next := math.Abs(pos.MarketValue) + notional
	if lim.MaxPositionNotional != nil && next > *lim.MaxPositionNotional {
		return d.reject(CodePositionLimit, sym, fmt.Sprintf(
			"Position notional %s exceeds MAX_POSITION_NOTIONAL_USD %s", fmtNum(next), fmtNum(*lim.MaxPositionNotional)))
	}
	if lim.MaxPositionPctEquity != nil && acct.Equity != nil {
		if capN := *acct.Equity * *lim.MaxPositionPctEquity; next > capN {
			return d.reject(CodePositionLimit, sym, fmt.Sprintf(
				"Position notional %s exceeds MAX_POSITION_PCT_EQUITY %s (%s of equity %s)",
				fmtNum(next), fmtNum(*lim.MaxPositionPctEquity), fmtNum(capN), fmtNum(*acct.Equity)))
		}
	}

	return d
}

// CheckShortSale guards qty sells against selling more than is held.
// Notional-only sells pass; only explicit share quantities are checked.
func CheckShortSale(lim Limits, intent OrderIntent, pos broker.Position) *Violation {
	if lim.AllowShort || intent.Side != broker.Sell || intent.Qty == nil {
		return nil
	}
	if *intent.Qty <= pos.Qty {
		return nil
	}
	return &Violation{
		Code:   CodeShortSale,
		Symbol: intent.Symbol,
		Msg: fmt.Sprintf("Shorting disabled or insufficient position: sell qty %s exceeds current qty %s",
			fmtNum(*intent.Qty), fmtNum(pos.Qty)),
		Extra: map[string]any{"current_qty": pos.Qty},
	}
}
