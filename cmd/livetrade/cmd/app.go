package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/livetrade/alert"
	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/broker/alpaca"
	"github.com/rustyeddy/livetrade/broker/paper"
	"github.com/rustyeddy/livetrade/config"
	"github.com/rustyeddy/livetrade/execution"
	"github.com/rustyeddy/livetrade/journal"
	"github.com/rustyeddy/livetrade/market"
	"github.com/rustyeddy/livetrade/market/polygon"
	"github.com/rustyeddy/livetrade/pkg/clock"
	"github.com/rustyeddy/livetrade/risk"
	"github.com/rustyeddy/livetrade/session"
)

// app holds the adapters built from configuration for one command.
type app struct {
	cfg     *config.Config
	clock   clock.Clock
	broker  broker.Broker
	polygon *polygon.Client
	alerts  *alert.Notifier
	journal *journal.SQLite
	days    *risk.DayStore
	router  *execution.Router
}

func newApp(c *config.Config) (*app, error) {
	a := &app{cfg: c, clock: clock.Real{}}

	if c.Polygon.APIKey != "" {
		a.polygon = polygon.NewClient(c.PolygonClientConfig())
	}

	if paperMode {
		var opts []paper.Option
		if q := a.quoter(); q != nil {
			opts = append(opts, paper.WithQuoter(q))
		}
		e := paper.NewEngine(c.Paper.Cash, opts...)
		e.AllowShort = c.Limits.AllowShort
		for sym, p := range c.Paper.Prices {
			e.SetPrice(sym, p)
		}
		a.broker = e
	} else {
		a.broker = alpaca.NewClient(c.AlpacaClientConfig())
	}

	a.alerts = alert.NewNotifier(c.AlertNotifierConfig(), a.clock)
	a.days = risk.NewDayStore(c.State.Path, a.clock)

	if c.Journal.DBPath != "" {
		j, err := journal.NewSQLite(c.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = j
	}

	opts := []execution.Option{
		execution.WithLimits(c.Limits),
		execution.WithDayStore(a.days),
		execution.WithAlerts(a.alerts),
		execution.WithClock(a.clock),
		execution.WithTWAPDefaults(c.TWAP),
	}
	if q := a.quoter(); q != nil {
		opts = append(opts, execution.WithQuoter(q))
	}
	if a.journal != nil {
		opts = append(opts, execution.WithJournal(a.journal))
	}
	a.router = execution.NewRouter(a.broker, opts...)
	return a, nil
}

// quoter avoids handing out a typed nil interface.
func (a *app) quoter() market.Quoter {
	if a.polygon == nil {
		return nil
	}
	return a.polygon
}

func (a *app) runner() *session.Runner {
	r := &session.Runner{Broker: a.broker, Alerts: a.alerts, Clock: a.clock}
	if a.journal != nil {
		r.Journal = a.journal
	}
	return r
}

// runPlan loads the plan and executes it as one journaled session.
func (a *app) runPlan(ctx context.Context, planPath, signature string) (session.Summary, *session.PlanSession, error) {
	p, err := session.LoadPlan(planPath)
	if err != nil {
		return session.Summary{}, nil, err
	}
	if signature == "" {
		signature = p.Signature
	}
	if signature == "" {
		signature = a.cfg.Scheduler.Signature
	}
	ps := &session.PlanSession{Router: a.router, Plan: p}
	sum, err := a.runner().Execute(ctx, signature, ps)
	return sum, ps, err
}

func (a *app) requirePolygon() (*polygon.Client, error) {
	if a.polygon == nil {
		return nil, polygon.ErrMissingAPIKey
	}
	return a.polygon, nil
}

// Close drains pending alert deliveries before closing the journal.
func (a *app) Close() {
	a.alerts.Wait()
	if a.journal != nil {
		_ = a.journal.Close()
	}
}
