// Package journal is the audit trail: every order attempt and every run
// summary is written here.
package journal

import (
	"context"
	"time"
)

// Order attempt outcomes.
const (
	StatusSubmitted = "submitted"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// Run outcomes.
const (
	RunCompleted = "completed"
	RunError     = "error"
)

type OrderRecord struct {
	ClientOrderID  string
	RunID          string
	Time           time.Time
	Symbol         string
	Side           string
	AssetClass     string
	OrderType      string
	TimeInForce    string
	Qty            *float64
	Notional       *float64
	EstimatedPrice *float64
	Status         string
	BrokerOrderID  string
	// RejectType is the violation code for rejected attempts.
	RejectType string
	Reason     string
}

type RunRecord struct {
	RunID       string
	Signature   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	Error       string
	Equity      *float64
	Cash        *float64
	BuyingPower *float64
	// Positions is the JSON encoded position snapshot at the end of the run.
	Positions string
}

type Journal interface {
	RecordOrder(ctx context.Context, r OrderRecord) error
	RecordRun(ctx context.Context, r RunRecord) error
	Close() error
}
