package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/execution"
	"github.com/rustyeddy/livetrade/session"
)

var (
	runPlanPath  string
	runSignature string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute an order plan as one trading session",
	Long: `Replay a YAML or JSON order plan through the risk gate as a single run.

The run is journaled with a fresh run id, the account is snapshotted when
it ends, and a failed run raises a live_run_error alert. Rejected orders
are reported but do not fail the run.

Example:
  livetrade run --plan plans/rebalance.yaml --paper`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		path := runPlanPath
		if path == "" {
			path = a.cfg.Scheduler.PlanPath
		}
		if path == "" {
			return errors.New("no plan: pass --plan or set scheduler.plan_path")
		}
		sum, ps, err := a.runPlan(cmd.Context(), path, runSignature)
		if ps != nil {
			printPlanResults(cmd.OutOrStdout(), ps.Results)
		}
		if sum.RunID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s): %s\n", sum.RunID, sum.Signature, sum.Status)
		}
		return err
	}),
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runPlanPath, "plan", "p", "", "order plan file (default scheduler.plan_path)")
	runCmd.Flags().StringVar(&runSignature, "signature", "", "label recorded with the run")
}

func printPlanResults(w io.Writer, results []session.ItemResult) {
	for _, r := range results {
		fmt.Fprintf(w, "[%d] %s %s: ", r.Index, r.Item.Side, r.Item.Symbol)
		switch {
		case r.Err != nil && r.TWAP == nil:
			fmt.Fprintf(w, "%s: %v\n", execution.Outcome(r.Err), r.Err)
		case r.TWAP != nil:
			fmt.Fprintf(w, "twap %d/%d slices submitted", r.TWAP.Submitted(), r.TWAP.SliceCount)
			if r.Err != nil {
				fmt.Fprintf(w, " (%v)", r.Err)
			}
			fmt.Fprintln(w)
		case r.Order != nil:
			fmt.Fprintf(w, "submitted id=%s status=%s\n", r.Order.ID, r.Order.Status)
		}
	}
}
