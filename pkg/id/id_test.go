package id

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonic(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestClientOrderID(t *testing.T) {
	got := ClientOrderID()
	assert.True(t, strings.HasPrefix(got, "lt-"))
	assert.LessOrEqual(t, len(got), 48)
	assert.NotEqual(t, got, ClientOrderID())
}

func TestRunID(t *testing.T) {
	_, err := uuid.Parse(RunID())
	require.NoError(t, err)
}
