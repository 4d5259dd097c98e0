package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/livetrade/broker"
	"github.com/rustyeddy/livetrade/execution"
	"github.com/rustyeddy/livetrade/risk"
)

// PlanItem is one order intent, optionally sliced with TWAP.
type PlanItem struct {
	risk.OrderIntent `yaml:",inline"`
	TWAP             *execution.TWAPOptions `json:"twap,omitempty" yaml:"twap,omitempty"`
}

// Plan is a list of intents to replay in order, the file form of a
// decision loop's tool calls.
type Plan struct {
	Signature string     `json:"signature,omitempty" yaml:"signature,omitempty"`
	Orders    []PlanItem `json:"orders" yaml:"orders"`
}

// LoadPlan reads a YAML or JSON plan.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p := &Plan{}
	if err := yaml.Unmarshal(data, p); err != nil {
		p = &Plan{}
		if jerr := json.Unmarshal(data, p); jerr != nil {
			return nil, fmt.Errorf("parse plan (tried YAML and JSON): %w", jerr)
		}
	}
	if len(p.Orders) == 0 {
		return nil, fmt.Errorf("plan %s has no orders", path)
	}
	return p, nil
}

// ItemResult is the outcome of one plan entry. Exactly one of Order or
// TWAP is set on success.
type ItemResult struct {
	Index int
	Item  PlanItem
	Order *broker.Order
	TWAP  *execution.TWAPResult
	Err   error
}

// PlanSession replays a plan through the router. Rejected and failed
// orders are results; only cancellation ends the session early.
type PlanSession struct {
	Router *execution.Router
	Plan   *Plan

	Results []ItemResult
}

func (s *PlanSession) Run(ctx context.Context) error {
	if s.Router == nil || s.Plan == nil {
		return fmt.Errorf("plan session: router and plan are required")
	}
	s.Results = s.Results[:0]

	for i, item := range s.Plan.Orders {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := ItemResult{Index: i, Item: item}
		if item.TWAP != nil {
			tr, err := s.Router.TWAP(ctx, item.OrderIntent, *item.TWAP)
			res.TWAP, res.Err = &tr, err
		} else {
			ord, err := s.Router.Place(ctx, item.OrderIntent)
			if err == nil {
				res.Order = &ord
			}
			res.Err = err
		}
		s.Results = append(s.Results, res)

		logrus.WithFields(logrus.Fields{
			"component": "plan",
			"index":     i,
			"symbol":    item.Symbol,
			"side":      item.Side,
			"outcome":   execution.Outcome(res.Err),
		}).Info("plan item done")
	}
	return ctx.Err()
}
