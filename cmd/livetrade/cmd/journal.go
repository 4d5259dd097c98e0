package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the order and run journal",
	Long: `Query order attempts and session runs from the SQLite journal.

Subcommands:
  order  - Show one order attempt by client order id
  orders - List order attempts, newest first
  runs   - List session runs, newest first

Examples:
  livetrade journal order lt-01HV...
  livetrade journal orders --symbol AAPL --status rejected
  livetrade journal orders --day 2024-01-15 --csv > orders.csv
  livetrade journal runs --limit 5`,
}

var journalOrderCmd = &cobra.Command{
	Use:   "order <client-order-id>",
	Short: "Show one order attempt",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrder,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List order attempts",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrders,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List session runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var (
	journalDBPath string
	jf            struct {
		symbol, status, runID, day string
		limit                      int
		csv                        bool
	}
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOrderCmd)
	journalCmd.AddCommand(journalOrdersCmd)
	journalCmd.AddCommand(journalRunsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")
	journalCmd.PersistentFlags().IntVarP(&jf.limit, "limit", "n", 50, "maximum rows, 0 for all")

	fl := journalOrdersCmd.Flags()
	fl.StringVar(&jf.symbol, "symbol", "", "filter by symbol")
	fl.StringVar(&jf.status, "status", "", "filter by status (submitted, rejected, failed)")
	fl.StringVar(&jf.runID, "run", "", "filter by run id")
	fl.StringVar(&jf.day, "day", "", "only attempts since this UTC day (YYYY-MM-DD)")
	fl.BoolVar(&jf.csv, "csv", false, "write CSV instead of a table")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("journal disabled: set journal.db_path or pass --db")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalOrder(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetOrder(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Client id:  %s\n", rec.ClientOrderID)
	fmt.Fprintf(out, "Run:        %s\n", rec.RunID)
	fmt.Fprintf(out, "Time:       %s\n", rec.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Order:      %s %s %s %s %s\n", rec.Side, rec.Symbol, rec.AssetClass, rec.OrderType, rec.TimeInForce)
	fmt.Fprintf(out, "Size:       %s\n", sizeOf(rec))
	if rec.EstimatedPrice != nil {
		fmt.Fprintf(out, "Est. price: %.4f\n", *rec.EstimatedPrice)
	}
	fmt.Fprintf(out, "Status:     %s\n", rec.Status)
	if rec.BrokerOrderID != "" {
		fmt.Fprintf(out, "Broker id:  %s\n", rec.BrokerOrderID)
	}
	if rec.RejectType != "" {
		fmt.Fprintf(out, "Rejected:   %s\n", rec.RejectType)
	}
	if rec.Reason != "" {
		fmt.Fprintf(out, "Reason:     %s\n", rec.Reason)
	}
	return nil
}

func runJournalOrders(cmd *cobra.Command, args []string) error {
	f := journal.OrderFilter{Symbol: jf.symbol, Status: jf.status, RunID: jf.runID, Limit: jf.limit}
	if jf.day != "" {
		t, err := time.Parse(time.DateOnly, jf.day)
		if err != nil {
			return fmt.Errorf("day: %w", err)
		}
		f.Since = t
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListOrders(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}
	if jf.csv {
		return journal.WriteOrdersCSV(cmd.OutOrStdout(), recs)
	}
	printOrderRecords(cmd.OutOrStdout(), recs)
	return nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), jf.limit)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSIGNATURE\tSTARTED\tDURATION\tSTATUS\tEQUITY\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Signature, r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Status, money(r.Equity), r.Error)
	}
	return tw.Flush()
}

func printOrderRecords(w io.Writer, recs []journal.OrderRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No orders")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCLIENT ID\tSYMBOL\tSIDE\tSIZE\tSTATUS\tREASON")
	for _, r := range recs {
		reason := r.Reason
		if r.RejectType != "" {
			reason = r.RejectType + ": " + reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Time.UTC().Format("2006-01-02 15:04:05"), r.ClientOrderID, r.Symbol, r.Side, sizeOf(r), r.Status, reason)
	}
	tw.Flush()
}

func sizeOf(r journal.OrderRecord) string {
	switch {
	case r.Qty != nil:
		return fmt.Sprintf("qty %g", *r.Qty)
	case r.Notional != nil:
		return fmt.Sprintf("$%.2f", *r.Notional)
	}
	return "-"
}
