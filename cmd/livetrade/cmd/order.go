package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/execution"
	"github.com/rustyeddy/livetrade/risk"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place risk-checked orders",
	Long: `Place orders through the risk gate.

Subcommands:
  place - Submit a single order
  twap  - Split an order into equal slices submitted over time

Examples:
  livetrade order place --symbol AAPL --side buy --qty 10
  livetrade order place --symbol BTC/USD --side buy --notional 250 --asset crypto
  livetrade order twap --symbol MSFT --side buy --qty 40 --slices 4 --interval 30`,
}

var orderPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Submit a single order",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOrderPlace),
}

var orderTWAPCmd = &cobra.Command{
	Use:   "twap",
	Short: "Submit an order as TWAP slices",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOrderTWAP),
}

type orderFlags struct {
	symbol, side, asset, orderType, tif string
	qty, notional, estPrice             float64
	limitPrice, stopPrice               float64
	slices, interval                    int
}

var of orderFlags

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderPlaceCmd)
	orderCmd.AddCommand(orderTWAPCmd)

	for _, c := range []*cobra.Command{orderPlaceCmd, orderTWAPCmd} {
		fl := c.Flags()
		fl.StringVarP(&of.symbol, "symbol", "s", "", "symbol, e.g. AAPL or BTC/USD (required)")
		fl.StringVar(&of.side, "side", "", "buy or sell (required)")
		fl.StringVar(&of.asset, "asset", "", "equity or crypto (default equity)")
		fl.Float64Var(&of.qty, "qty", 0, "order quantity")
		fl.Float64Var(&of.notional, "notional", 0, "order size in USD")
		fl.Float64Var(&of.estPrice, "price", 0, "estimated price used for risk sizing")
		fl.StringVar(&of.orderType, "type", "", "market, limit, stop or stop_limit (default market)")
		fl.Float64Var(&of.limitPrice, "limit", 0, "limit price")
		fl.Float64Var(&of.stopPrice, "stop", 0, "stop price")
		fl.StringVar(&of.tif, "tif", "", "time in force (default day for equity, gtc for crypto)")
		_ = c.MarkFlagRequired("symbol")
		_ = c.MarkFlagRequired("side")
	}
	orderTWAPCmd.Flags().IntVar(&of.slices, "slices", 0, "number of slices (default from config)")
	orderTWAPCmd.Flags().IntVar(&of.interval, "interval", 0, "seconds between slices (default from config)")
}

// intentFromFlags only sets the optional fields the user actually passed.
func intentFromFlags(cmd *cobra.Command) risk.OrderIntent {
	fl := cmd.Flags()
	in := risk.OrderIntent{
		Symbol:      of.symbol,
		Side:        broker.Side(of.side),
		AssetClass:  broker.AssetClass(of.asset),
		OrderType:   broker.OrderType(of.orderType),
		TimeInForce: broker.TimeInForce(of.tif),
	}
	opt := func(name string, v float64) *float64 {
		if fl.Changed(name) {
			return broker.Float(v)
		}
		return nil
	}
	in.Qty = opt("qty", of.qty)
	in.Notional = opt("notional", of.notional)
	in.EstimatedPrice = opt("price", of.estPrice)
	in.LimitPrice = opt("limit", of.limitPrice)
	in.StopPrice = opt("stop", of.stopPrice)
	return in
}

func runOrderPlace(cmd *cobra.Command, a *app, args []string) error {
	ord, err := a.router.Place(cmd.Context(), intentFromFlags(cmd))
	if err != nil {
		return describeOrderError(cmd.ErrOrStderr(), err)
	}
	printOrder(cmd.OutOrStdout(), ord)
	return nil
}

func runOrderTWAP(cmd *cobra.Command, a *app, args []string) error {
	var opts execution.TWAPOptions
	if cmd.Flags().Changed("slices") {
		opts.Slices = &of.slices
	}
	if cmd.Flags().Changed("interval") {
		opts.IntervalSeconds = &of.interval
	}

	res, err := a.router.TWAP(cmd.Context(), intentFromFlags(cmd), opts)
	out := cmd.OutOrStdout()
	for _, s := range res.Results {
		if s.OK() && s.Order != nil {
			fmt.Fprintf(out, "slice %d/%d: ", s.Index+1, res.SliceCount)
			printOrder(out, *s.Order)
			continue
		}
		fmt.Fprintf(out, "slice %d/%d: %s: %v\n", s.Index+1, res.SliceCount, execution.Outcome(s.Err), s.Err)
	}
	if err != nil {
		return describeOrderError(cmd.ErrOrStderr(), err)
	}
	fmt.Fprintf(out, "%d of %d slices submitted\n", res.Submitted(), res.SliceCount)
	return nil
}

func describeOrderError(w io.Writer, err error) error {
	var rej *execution.RejectionError
	if errors.As(err, &rej) {
		fmt.Fprintf(w, "✗ rejected: %s\n", rej.Violation.Code)
		for k, v := range rej.Details() {
			fmt.Fprintf(w, "  %s: %v\n", k, v)
		}
	}
	return err
}
