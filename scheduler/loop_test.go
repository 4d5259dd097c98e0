package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/broker/paper"
	"github.com/rustyeddy/livetrade/pkg/clock"
)

type brokenClock struct{ broker.Broker }

func (brokenClock) GetClock(context.Context) (broker.Clock, error) {
	return broker.Clock{}, errors.New("clock endpoint down")
}

type busyLock struct{}

func (busyLock) TryAcquire() (bool, error) { return false, nil }
func (busyLock) Release() error            { return nil }

func TestDefaultLockTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 120*time.Second, DefaultLockTTL(time.Minute))
	assert.Equal(t, 10*time.Minute, DefaultLockTTL(5*time.Minute))
}

func TestLoopRunsOnStartupThenEveryInterval(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(epoch)
	lockPath := filepath.Join(t.TempDir(), "run.lock")
	runs := 0
	l := &Loop{
		Clock:        clk,
		Lock:         NewFileLock(lockPath, DefaultLockTTL(time.Minute), clk),
		Interval:     time.Minute,
		RunOnStartup: true,
		Run: func(context.Context) error {
			runs++
			if runs == 3 {
				cancel()
			}
			return errors.New("session blew up")
		},
	}

	err := l.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, runs, "run errors do not stop the loop")
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, clk.Sleeps())

	ok, err := NewFileLock(lockPath, time.Hour, clk).TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok, "lock released after every run")
}

func TestLoopWaitsFirstWithoutStartupRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(epoch)
	var at time.Time
	l := &Loop{
		Clock:    clk,
		Interval: 30 * time.Second,
		Run: func(context.Context) error {
			at = clk.Now()
			cancel()
			return nil
		},
	}
	require.ErrorIs(t, l.Start(ctx), context.Canceled)
	assert.Equal(t, epoch.Add(30*time.Second), at)
}

func TestLoopRejectsZeroInterval(t *testing.T) {
	t.Parallel()

	l := &Loop{Run: func(context.Context) error { return nil }}
	assert.Error(t, l.Start(context.Background()))
}

func TestTickMarketGating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	closed := paper.NewEngine(0, paper.WithMarketClosed())
	runs := 0
	run := func(context.Context) error { runs++; return nil }

	tests := []struct {
		name string
		loop Loop
		want bool
	}{
		{"closed equity market skips", Loop{Broker: closed, EquityOpenOnly: true, Run: run}, false},
		{"crypto keeps running", Loop{Broker: closed, EquityOpenOnly: true, CryptoEnabled: true, Run: run}, true},
		{"gating disabled", Loop{Broker: closed, Run: run}, true},
		{"clock error runs anyway", Loop{Broker: brokenClock{closed}, EquityOpenOnly: true, Run: run}, true},
		{"open market runs", Loop{Broker: paper.NewEngine(0), EquityOpenOnly: true, Run: run}, true},
		{"busy lock skips", Loop{Lock: busyLock{}, Run: run}, false},
	}
	for _, tt := range tests {
		before := runs
		l := tt.loop
		assert.Equal(t, tt.want, l.Tick(ctx), tt.name)
		assert.Equal(t, tt.want, runs > before, tt.name)
	}
}
