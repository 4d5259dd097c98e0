package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage livetrade configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  livetrade config init -o livetrade.yaml
  livetrade config validate -f livetrade.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "livetrade.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nSet limits, then run with:")
	fmt.Fprintf(out, "  livetrade --config %s run --plan <plan.yaml>\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Broker: alpaca %s\n", c.Alpaca.Env)
	fmt.Fprintf(out, "  Limits: order %s / %s, position %s / %s, daily loss %s\n",
		limitUSD(c.Limits.MaxOrderNotional), limitPct(c.Limits.MaxOrderPctEquity),
		limitUSD(c.Limits.MaxPositionNotional), limitPct(c.Limits.MaxPositionPctEquity),
		limitPct(c.Limits.MaxDailyLossPct))
	fmt.Fprintf(out, "  Shorting: %t\n", c.Limits.AllowShort)
	fmt.Fprintf(out, "  TWAP: %d slices every %ds\n", c.TWAP.Slices, c.TWAP.IntervalSeconds)
	fmt.Fprintf(out, "  Scheduler: every %ds, lock %s\n", c.Scheduler.IntervalSeconds, c.Scheduler.LockPath)
	return nil
}

func limitUSD(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func limitPct(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
