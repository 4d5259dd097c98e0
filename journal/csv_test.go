package journal

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOrdersCSV(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteOrdersCSV(&buf, []OrderRecord{
		{Time: at, ClientOrderID: "c1", Symbol: "AAPL", Side: "buy", Qty: fp(3), EstimatedPrice: fp(101.5), Status: StatusSubmitted},
		{Time: at, ClientOrderID: "c2", Symbol: "BTC/USD", Side: "buy", Notional: fp(250), Status: StatusRejected, RejectType: "daily_loss", Reason: "Daily loss 5.00%, limit"},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, orderHeader, rows[0])

	assert.Equal(t, "2024-01-02T15:00:00Z", rows[1][0])
	assert.Equal(t, "3", rows[1][8])
	assert.Equal(t, "", rows[1][9])
	assert.Equal(t, "101.5", rows[1][10])

	assert.Equal(t, "250", rows[2][9])
	assert.Equal(t, "daily_loss", rows[2][13])
	assert.Equal(t, "Daily loss 5.00%, limit", rows[2][14])
}

func TestWriteOrdersCSVHeaderOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, nil))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}
