package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/market/polygon"
)

var (
	quoteAsset string

	barsAsset      string
	barsStart      string
	barsEnd        string
	barsMultiplier int
	barsTimespan   string
)

var quoteCmd = &cobra.Command{
	Use:   "quote <symbol>",
	Short: "Show the latest quote and the price the risk gate would use",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		pg, err := a.requirePolygon()
		if err != nil {
			return err
		}
		asset, err := parseAsset(quoteAsset)
		if err != nil {
			return err
		}
		q, err := pg.LastQuote(cmd.Context(), args[0], asset)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  bid %.4f  ask %.4f  mid %.4f  spread %.4f\n",
			strings.ToUpper(args[0]), q.Bid, q.Ask, q.Mid(), q.Spread())
		for _, side := range []broker.Side{broker.Buy, broker.Sell} {
			if p, ok := q.EstimatePrice(side); ok {
				fmt.Fprintf(out, "  %s estimate: %.4f\n", side, p)
			}
		}
		return nil
	}),
}

var barsCmd = &cobra.Command{
	Use:   "bars <symbol>",
	Short: "Fetch aggregate bars from Polygon",
	Long: `Fetch OHLCV aggregates for a symbol.

Examples:
  livetrade bars AAPL --start 2024-01-02 --end 2024-01-05 --timespan day
  livetrade bars BTC/USD --asset crypto --timespan hour`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		pg, err := a.requirePolygon()
		if err != nil {
			return err
		}
		asset, err := parseAsset(barsAsset)
		if err != nil {
			return err
		}
		start, end := barsStart, barsEnd
		today := a.clock.Now().UTC()
		if end == "" {
			end = today.Format(time.DateOnly)
		}
		if start == "" {
			start = today.AddDate(0, 0, -7).Format(time.DateOnly)
		}

		bars, err := pg.Aggregates(cmd.Context(), polygon.AggregatesRequest{
			Symbol:     args[0],
			AssetClass: asset,
			Start:      start,
			End:        end,
			Multiplier: barsMultiplier,
			Timespan:   barsTimespan,
		})
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME")
		for _, b := range bars {
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.0f\n",
				b.Time.UTC().Format("2006-01-02 15:04"), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		return tw.Flush()
	}),
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(barsCmd)

	quoteCmd.Flags().StringVar(&quoteAsset, "asset", "", "equity or crypto (default equity)")

	barsCmd.Flags().StringVar(&barsAsset, "asset", "", "equity or crypto (default equity)")
	barsCmd.Flags().StringVar(&barsStart, "start", "", "start date YYYY-MM-DD (default 7 days ago)")
	barsCmd.Flags().StringVar(&barsEnd, "end", "", "end date YYYY-MM-DD (default today)")
	barsCmd.Flags().IntVar(&barsMultiplier, "multiplier", 1, "timespan multiplier")
	barsCmd.Flags().StringVar(&barsTimespan, "timespan", "day", "minute, hour, day, week or month")
}

func parseAsset(s string) (broker.AssetClass, error) {
	a, ok := broker.ParseAssetClass(s)
	if !ok {
		return "", fmt.Errorf("unknown asset class %q", s)
	}
	return a, nil
}
