package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/broker"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the broker account snapshot",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		acct, err := a.broker.GetAccount(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Account:      %s (%s)\n", acct.ID, acct.Status)
		fmt.Fprintf(out, "Currency:     %s\n", acct.Currency)
		fmt.Fprintf(out, "Equity:       %s\n", money(acct.Equity))
		fmt.Fprintf(out, "Cash:         %s\n", money(acct.Cash))
		fmt.Fprintf(out, "Buying power: %s\n", money(acct.BuyingPower))
		return nil
	}),
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List open positions",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ps, err := a.broker.ListPositions(cmd.Context())
		if err != nil {
			return err
		}
		if len(ps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No open positions")
			return nil
		}
		printPositions(cmd.OutOrStdout(), ps)
		return nil
	}),
}

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Show the equity market clock",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		c, err := a.broker.GetClock(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		state := "closed"
		if c.IsOpen {
			state = "open"
		}
		fmt.Fprintf(out, "Market is %s\n", state)
		if !c.NextOpen.IsZero() {
			fmt.Fprintf(out, "  next open:  %s\n", c.NextOpen.Format("2006-01-02 15:04 MST"))
		}
		if !c.NextClose.IsZero() {
			fmt.Fprintf(out, "  next close: %s\n", c.NextClose.Format("2006-01-02 15:04 MST"))
		}
		return nil
	}),
}

var cancelAllCmd = &cobra.Command{
	Use:   "cancel-all",
	Short: "Cancel every open order",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		sts, err := a.broker.CancelAllOrders(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Cancel requested for %d order(s)\n", len(sts))
		for _, s := range sts {
			fmt.Fprintf(out, "  %s  status=%d\n", s.OrderID, s.Status)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(clockCmd)
	rootCmd.AddCommand(cancelAllCmd)
}

// withApp builds the adapters from the loaded config and closes them after
// the command returns.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func money(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func printPositions(w io.Writer, ps broker.Positions) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tCLASS\tQTY\tMARKET VALUE")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\n", p.Symbol, p.AssetClass, p.Qty, p.MarketValue)
	}
	tw.Flush()
}

func printOrder(w io.Writer, o broker.Order) {
	size := ""
	switch {
	case o.Qty != nil:
		size = fmt.Sprintf("qty=%g", *o.Qty)
	case o.Notional != nil:
		size = fmt.Sprintf("notional=%.2f", *o.Notional)
	}
	fmt.Fprintf(w, "✓ %s %s %s %s [%s] id=%s client_id=%s\n",
		o.Side, o.Symbol, size, o.Type, o.Status, o.ID, o.ClientOrderID)
}
