// Package scheduler runs a trading session on a fixed interval, one at a
// time across processes.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/pkg/clock"
	"github.com/rustyeddy/livetrade/pkg/metrics"
)

// MinLockTTL is the floor for the default lock TTL.
const MinLockTTL = 120 * time.Second

// DefaultLockTTL is max(120s, 2*interval).
func DefaultLockTTL(interval time.Duration) time.Duration {
	return max(MinLockTTL, 2*interval)
}

type Loop struct {
	Clock  clock.Clock
	Lock   Locker
	Broker broker.Broker
	Run    func(ctx context.Context) error

	Interval time.Duration

	// EquityOpenOnly skips ticks while the equity market is closed. It has
	// no effect when CryptoEnabled, since crypto trades around the clock.
	EquityOpenOnly bool
	CryptoEnabled  bool
	// RunOnStartup runs once before the first wait, without the market check.
	RunOnStartup bool

	Log *logrus.Entry
}

// Start blocks until ctx is done. Run errors are logged and never stop the
// loop.
func (l *Loop) Start(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", l.Interval)
	}
	l.defaults()

	l.Log.WithFields(logrus.Fields{
		"interval":         l.Interval,
		"equity_open_only": l.EquityOpenOnly,
		"crypto_enabled":   l.CryptoEnabled,
	}).Info("scheduler started")

	if l.RunOnStartup {
		l.runLocked(ctx)
	}
	for {
		if err := l.Clock.Sleep(ctx, l.Interval); err != nil {
			l.Log.Info("scheduler stopped")
			return ctx.Err()
		}
		l.Tick(ctx)
	}
}

// Tick performs one scheduled iteration and reports whether Run was called.
func (l *Loop) Tick(ctx context.Context) bool {
	l.defaults()
	if !l.shouldRun(ctx) {
		l.Log.Debug("market closed, skipping tick")
		metrics.Runs.WithLabelValues("skipped_closed").Inc()
		return false
	}
	return l.runLocked(ctx)
}

func (l *Loop) defaults() {
	if l.Clock == nil {
		l.Clock = clock.Real{}
	}
	if l.Log == nil {
		l.Log = logrus.WithField("component", "scheduler")
	}
}

func (l *Loop) shouldRun(ctx context.Context) bool {
	if !l.EquityOpenOnly || l.CryptoEnabled || l.Broker == nil {
		return true
	}
	c, err := l.Broker.GetClock(ctx)
	if err != nil {
		// unknown market state: run and let the session decide
		l.Log.WithError(err).Warn("market clock unavailable")
		return true
	}
	return c.IsOpen
}

func (l *Loop) runLocked(ctx context.Context) bool {
	if l.Lock != nil {
		ok, err := l.Lock.TryAcquire()
		if err != nil {
			l.Log.WithError(err).Error("acquire run lock")
			return false
		}
		if !ok {
			l.Log.Info("another run holds the lock, skipping")
			metrics.Runs.WithLabelValues("skipped_locked").Inc()
			return false
		}
		defer func() {
			if err := l.Lock.Release(); err != nil {
				l.Log.WithError(err).Error("release run lock")
			}
		}()
	}

	if err := l.Run(ctx); err != nil {
		l.Log.WithError(err).Error("scheduled run failed")
	}
	return true
}
