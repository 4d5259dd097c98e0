package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/risk"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the daily risk state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show today's start-of-day equity baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days := risk.NewDayStore(cfg.State.Path, nil)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "State file: %s\n", cfg.State.Path)
		fmt.Fprintf(out, "Today (UTC): %s\n", days.Today())

		st := days.Load()
		if st == nil {
			fmt.Fprintln(out, "No daily state recorded")
			return nil
		}
		fmt.Fprintf(out, "Recorded date: %s\n", st.Date)
		fmt.Fprintf(out, "Equity start:  $%.2f\n", st.EquityStart)
		if st.Date != days.Today() {
			fmt.Fprintln(out, "  (stale: the next buy will reset the baseline)")
		}
		if l := cfg.Limits.MaxDailyLossPct; l != nil {
			fmt.Fprintf(out, "Loss floor:    $%.2f (%.1f%%)\n", st.EquityStart*(1-*l), *l*100)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
}
