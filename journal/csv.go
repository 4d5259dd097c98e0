package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var orderHeader = []string{
	"time", "client_order_id", "run_id", "symbol", "side", "asset_class", "order_type",
	"time_in_force", "qty", "notional", "estimated_price", "status", "broker_order_id",
	"reject_type", "reason",
}

// WriteOrdersCSV exports order attempts with a header row.
func WriteOrdersCSV(w io.Writer, recs []OrderRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{
			r.Time.UTC().Format(time.RFC3339),
			r.ClientOrderID,
			r.RunID,
			r.Symbol,
			r.Side,
			r.AssetClass,
			r.OrderType,
			r.TimeInForce,
			f(r.Qty),
			f(r.Notional),
			f(r.EstimatedPrice),
			r.Status,
			r.BrokerOrderID,
			r.RejectType,
			r.Reason,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x *float64) string {
	if x == nil {
		return ""
	}
	return strconv.FormatFloat(*x, 'f', -1, 64)
}
