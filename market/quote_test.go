package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/livetrade/broker"
)

func TestQuoteMidSpread(t *testing.T) {
	t.Parallel()

	q := Quote{Bid: 99.5, Ask: 100.5}
	assert.InDelta(t, 100.0, q.Mid(), 1e-12)
	assert.InDelta(t, 1.0, q.Spread(), 1e-12)
}

func TestEstimatePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		q     Quote
		side  broker.Side
		want  float64
		found bool
	}{
		{"buy pays ask", Quote{Bid: 10, Ask: 11}, broker.Buy, 11, true},
		{"sell hits bid", Quote{Bid: 10, Ask: 11}, broker.Sell, 10, true},
		{"buy falls back to bid", Quote{Bid: 10}, broker.Buy, 10, true},
		{"sell falls back to ask", Quote{Ask: 11}, broker.Sell, 11, true},
		{"empty", Quote{}, broker.Buy, 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.q.EstimatePrice(tt.side)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
