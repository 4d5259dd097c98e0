package execution

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/market"
	"github.com/rustyeddy/livetrade/pkg/clock"
)

var epoch = time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

type recordedAlert struct {
	Event   string
	Details map[string]any
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []recordedAlert
}

func (s *recordingSink) Notify(_ context.Context, event string, details map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, recordedAlert{Event: event, Details: details})
}

func (s *recordingSink) all() []recordedAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedAlert(nil), s.alerts...)
}

// probe wraps a broker, counting calls and the peak number of calls in
// flight at once.
type probe struct {
	broker.Broker
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func (p *probe) enter() func() {
	p.calls.Add(1)
	n := p.inflight.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return func() { p.inflight.Add(-1) }
}

func (p *probe) GetAccount(ctx context.Context) (broker.Account, error) {
	defer p.enter()()
	return p.Broker.GetAccount(ctx)
}

func (p *probe) ListPositions(ctx context.Context) (broker.Positions, error) {
	defer p.enter()()
	return p.Broker.ListPositions(ctx)
}

func (p *probe) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	defer p.enter()()
	return p.Broker.SubmitOrder(ctx, req)
}

type stubQuoter struct {
	q   market.Quote
	err error
}

func (s stubQuoter) LastQuote(context.Context, string, broker.AssetClass) (market.Quote, error) {
	return s.q, s.err
}

// cancelOnSleep cancels the session the first time the scheduler waits.
type cancelOnSleep struct {
	*clock.Fake
	cancel context.CancelFunc
}

func (c cancelOnSleep) Sleep(ctx context.Context, d time.Duration) error {
	c.cancel()
	return ctx.Err()
}
