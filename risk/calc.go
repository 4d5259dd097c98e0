package risk

import (
	"math"
	"strconv"
)

// OrderNotional estimates the currency value of an intent: the notional when
// given, else qty times the estimated price. Nil means unknown.
func OrderNotional(intent OrderIntent) *float64 {
	if intent.Notional != nil {
		n := *intent.Notional
		return &n
	}
	if intent.Qty == nil || intent.EstimatedPrice == nil {
		return nil
	}
	n := *intent.Qty * *intent.EstimatedPrice
	return &n
}

// Drawdown is the fractional decline from start to equity, floored at zero.
func Drawdown(start, equity float64) float64 {
	if start <= 0 {
		return 0
	}
	return math.Max(0, (start-equity)/start)
}

// fmtNum prints figures the way they were configured: 100, 0.05, 1234.5.
func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtPct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}
