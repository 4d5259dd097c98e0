package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/config"
	"github.com/rustyeddy/livetrade/pkg/logger"
)

var (
	cfgFile   string
	envFile   string
	paperMode bool
	logLevel  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "livetrade",
	Short: "Risk-gated order execution for live equity and crypto trading",
	Long: `livetrade places orders through a risk gate before they reach the broker.

It provides tools for:
  - Placing single orders and TWAP-sliced orders
  - Per-order, per-position and daily-loss limits
  - Replaying order plans as a trading session
  - Running sessions on a schedule with a cross-process lock
  - Inspecting the account, positions, quotes and the order journal

Credentials are read from the environment (or a .env file):
  ALPACA_API_KEY, ALPACA_API_SECRET, POLYGON_API_KEY`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			config.LoadDotEnv(envFile)
		} else {
			config.LoadDotEnv()
		}
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if err := logger.Init(c.Log); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().BoolVar(&paperMode, "paper", false, "use the in-process paper broker instead of Alpaca")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
