package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/livetrade/pkg/metrics"
	"github.com/rustyeddy/livetrade/scheduler"
)

var (
	schedulePlanPath    string
	scheduleSignature   string
	scheduleMetricsAddr string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the order plan on a polling schedule",
	Long: `Execute the order plan every scheduler.interval_seconds until interrupted.

Each tick checks the equity market clock (unless crypto is enabled), takes
the cross-process run lock and executes one session. The plan file is
re-read on every tick so it can be edited while the scheduler runs.

Example:
  livetrade schedule --plan plans/daily.yaml --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: withApp(runSchedule),
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVarP(&schedulePlanPath, "plan", "p", "", "order plan file (default scheduler.plan_path)")
	scheduleCmd.Flags().StringVar(&scheduleSignature, "signature", "", "label recorded with each run")
	scheduleCmd.Flags().StringVar(&scheduleMetricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address")
}

func runSchedule(cmd *cobra.Command, a *app, args []string) error {
	sc := a.cfg.Scheduler
	path := schedulePlanPath
	if path == "" {
		path = sc.PlanPath
	}
	if path == "" {
		return errors.New("no plan: pass --plan or set scheduler.plan_path")
	}
	log := logrus.WithField("component", "schedule")
	ctx := cmd.Context()

	if scheduleMetricsAddr != "" {
		srv := serveMetrics(scheduleMetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	loop := &scheduler.Loop{
		Clock:          a.clock,
		Lock:           scheduler.NewFileLock(sc.LockPath, a.cfg.LockTTL(), a.clock),
		Broker:         a.broker,
		Interval:       time.Duration(sc.IntervalSeconds) * time.Second,
		EquityOpenOnly: sc.EquityOpenOnly,
		CryptoEnabled:  sc.CryptoEnabled,
		RunOnStartup:   sc.RunOnStartup,
		Log:            log,
		Run: func(ctx context.Context) error {
			sum, _, err := a.runPlan(ctx, path, scheduleSignature)
			if err == nil {
				log.WithField("run_id", sum.RunID).Info("scheduled run done")
			}
			return err
		},
	}

	err := loop.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return srv
}
