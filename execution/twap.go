package execution

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/pkg/metrics"
	"github.com/rustyeddy/livetrade/risk"
)

// TWAPDefaults apply when a TWAP request leaves slices or interval unset.
type TWAPDefaults struct {
	Slices          int `json:"slices" yaml:"slices"`
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds"`
}

var DefaultTWAP = TWAPDefaults{Slices: 4, IntervalSeconds: 15}

// TWAPOptions overrides the defaults. Nil means unset. A zero Slices is
// also treated as unset; a zero interval is honoured.
type TWAPOptions struct {
	Slices          *int `json:"slices,omitempty" yaml:"slices,omitempty"`
	IntervalSeconds *int `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
}

// TWAPPlan is the resolved schedule. Exactly one of Quantities or
// Notionals is set and its sum equals the parent order's size.
type TWAPPlan struct {
	Slices          int
	IntervalSeconds int
	Quantities      []float64
	Notionals       []float64
}

func (p TWAPPlan) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

type SliceResult struct {
	Index    int
	Qty      *float64
	Notional *float64
	Order    *broker.Order
	Err      error
}

func (s SliceResult) OK() bool { return s.Err == nil }

// TWAPResult always has one entry per planned slice.
type TWAPResult struct {
	SliceCount int
	Results    []SliceResult
}

func (r TWAPResult) Submitted() int {
	n := 0
	for _, s := range r.Results {
		if s.OK() {
			n++
		}
	}
	return n
}

// SplitEquityQty splits whole units over n slices. The remainder goes one
// unit each to the earliest slices. When qty < n the order is not split.
func SplitEquityQty(qty, n int) []int {
	if n <= 1 {
		return []int{qty}
	}
	base := qty / n
	if base == 0 {
		return []int{qty}
	}
	rem := qty % n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// SplitEven divides total into n equal parts. Float rounding is not
// corrected.
func SplitEven(total float64, n int) []float64 {
	if n <= 1 {
		return []float64{total}
	}
	part := total / float64(n)
	out := make([]float64, n)
	for i := range out {
		out[i] = part
	}
	return out
}

// PlanTWAP validates intent and resolves the slice schedule without
// touching the broker.
func (r *Router) PlanTWAP(in risk.OrderIntent, opts TWAPOptions) (risk.OrderIntent, TWAPPlan, error) {
	intent, err := Normalize(in)
	if err != nil {
		return intent, TWAPPlan{}, err
	}

	plan := TWAPPlan{Slices: r.twap.Slices, IntervalSeconds: r.twap.IntervalSeconds}
	if opts.Slices != nil {
		if *opts.Slices < 0 {
			return intent, TWAPPlan{}, requestErr("slices", "must be at least 1")
		}
		if *opts.Slices > 0 {
			plan.Slices = *opts.Slices
		}
	}
	if opts.IntervalSeconds != nil {
		if *opts.IntervalSeconds < 0 {
			return intent, TWAPPlan{}, requestErr("interval_seconds", "must not be negative")
		}
		plan.IntervalSeconds = *opts.IntervalSeconds
	}
	if plan.Slices < 1 {
		plan.Slices = 1
	}

	switch {
	case intent.Qty != nil && !intent.AssetClass.Fractional():
		q := *intent.Qty
		if q != math.Trunc(q) || q < 1 {
			return intent, TWAPPlan{}, requestErr("qty", "equity TWAP needs a whole number of shares, got %v", q)
		}
		for _, n := range SplitEquityQty(int(q), plan.Slices) {
			plan.Quantities = append(plan.Quantities, float64(n))
		}
	case intent.Qty != nil:
		plan.Quantities = SplitEven(*intent.Qty, plan.Slices)
	default:
		plan.Notionals = SplitEven(*intent.Notional, plan.Slices)
	}
	plan.Slices = max(len(plan.Quantities), len(plan.Notionals))
	return intent, plan, nil
}

// TWAP places the slices one after another through Place, sleeping the
// interval between them. A failed slice does not stop the rest. If ctx is
// cancelled while waiting, the remaining slices carry ctx's error and that
// error is returned alongside the full result.
func (r *Router) TWAP(ctx context.Context, in risk.OrderIntent, opts TWAPOptions) (TWAPResult, error) {
	intent, plan, err := r.PlanTWAP(in, opts)
	if err != nil {
		return TWAPResult{}, err
	}

	log := r.log.WithFields(logrus.Fields{
		"symbol":   intent.Symbol,
		"side":     intent.Side,
		"slices":   plan.Slices,
		"interval": plan.Interval(),
	})
	log.Info("twap start")

	res := TWAPResult{SliceCount: plan.Slices, Results: make([]SliceResult, 0, plan.Slices)}
	for i := 0; i < plan.Slices; i++ {
		child := intent
		child.Qty, child.Notional = nil, nil
		sr := SliceResult{Index: i}
		if plan.Quantities != nil {
			sr.Qty = broker.Float(plan.Quantities[i])
			child.Qty = sr.Qty
		} else {
			sr.Notional = broker.Float(plan.Notionals[i])
			child.Notional = sr.Notional
		}

		if cerr := ctx.Err(); cerr != nil {
			return r.abandon(res, plan, i, cerr), cerr
		}

		ord, err := r.Place(ctx, child)
		if err != nil {
			sr.Err = err
		} else {
			sr.Order = &ord
		}
		metrics.TWAPSlices.WithLabelValues(Outcome(err)).Inc()
		res.Results = append(res.Results, sr)
		log.WithField("slice", i+1).WithField("outcome", Outcome(err)).Debug("twap slice")

		if i == plan.Slices-1 || plan.IntervalSeconds == 0 {
			continue
		}
		if serr := r.clock.Sleep(ctx, plan.Interval()); serr != nil {
			return r.abandon(res, plan, i+1, serr), serr
		}
	}

	log.WithField("submitted", res.Submitted()).Info("twap done")
	return res, nil
}

// abandon reports slices from..end as not attempted.
func (r *Router) abandon(res TWAPResult, plan TWAPPlan, from int, err error) TWAPResult {
	for i := from; i < plan.Slices; i++ {
		sr := SliceResult{Index: i, Err: err}
		if plan.Quantities != nil {
			sr.Qty = broker.Float(plan.Quantities[i])
		} else {
			sr.Notional = broker.Float(plan.Notionals[i])
		}
		res.Results = append(res.Results, sr)
	}
	r.log.WithError(err).WithField("abandoned", plan.Slices-from).Warn("twap interrupted")
	return res
}
