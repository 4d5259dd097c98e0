// Package metrics holds the Prometheus collectors for order flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersAttempted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetrade_orders_attempted_total",
		Help: "Order intents that reached the router",
	}, []string{"side"})
	OrdersSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetrade_orders_submitted_total",
		Help: "Orders accepted by the broker",
	}, []string{"side"})
	OrdersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetrade_orders_rejected_total",
		Help: "Orders blocked by a risk limit or the short-sale guard",
	}, []string{"type"})
	OrdersFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetrade_orders_failed_total",
		Help: "Orders that failed on a broker call",
	}, []string{"side"})
	TWAPSlices = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetrade_twap_slices_total",
		Help: "TWAP child orders by outcome",
	}, []string{"outcome"})
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetrade_runs_total",
		Help: "Trading sessions by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(
		OrdersAttempted, OrdersSubmitted, OrdersRejected, OrdersFailed,
		TWAPSlices, Runs,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
