// Package clock abstracts wall-clock time so schedulers can be driven by a
// virtual clock in tests.
package clock

import (
	"context"
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Clock reports the current time and blocks for a duration.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

var wall = bclock.New()

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time { return wall.Now() }

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, wall, d)
}

func sleep(ctx context.Context, c bclock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := c.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fake is a manually driven clock backed by a mock. Sleep returns
// immediately after advancing the mock by d and remembering the requested
// duration; timers created on Mock fire as time moves.
type Fake struct {
	Mock *bclock.Mock

	mu     sync.Mutex
	sleeps []time.Duration
}

func NewFake(now time.Time) *Fake {
	m := bclock.NewMock()
	m.Set(now)
	return &Fake{Mock: m}
}

func (f *Fake) Now() time.Time { return f.Mock.Now() }

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()
	f.Mock.Add(d)
	return nil
}

// Advance moves the clock forward.
func (f *Fake) Advance(d time.Duration) { f.Mock.Add(d) }

// Set jumps the clock to t.
func (f *Fake) Set(t time.Time) { f.Mock.Set(t) }

// Sleeps returns a copy of every duration passed to Sleep.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
