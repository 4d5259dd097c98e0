package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/livetrade/pkg/clock"
)

var epoch = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func TestFileLockExcludesUntilReleased(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "run.lock")
	clk := clock.NewFake(epoch)
	a := NewFileLock(path, 2*time.Minute, clk)
	b := NewFileLock(path, 2*time.Minute, clk)

	ok, err := a.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "1704205800\n")

	ok, err = b.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok, "fresh lock is busy")

	require.NoError(t, a.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	ok, err = b.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileLockReclaimsStale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")
	clk := clock.NewFake(epoch)
	a := NewFileLock(path, 2*time.Minute, clk)
	b := NewFileLock(path, 2*time.Minute, clk)

	ok, _ := a.TryAcquire()
	require.True(t, ok)

	clk.Advance(119 * time.Second)
	ok, _ = b.TryAcquire()
	assert.False(t, ok)

	clk.Advance(time.Second)
	ok, err := b.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok, "lock at TTL age is abandoned")

	// the original holder must not delete the new owner's lock
	require.NoError(t, a.Release())
	_, err = os.Stat(path)
	assert.NoError(t, err)

	require.NoError(t, b.Release())
}

func TestFileLockCorruptFileIsReclaimed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	ok, err := NewFileLock(path, time.Hour, clock.NewFake(epoch)).TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileLockReadsFractionalStamp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")
	stamp := epoch.Add(-30 * time.Second).Unix()
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d.25", stamp)), 0o600))

	ok, err := NewFileLock(path, time.Minute, clock.NewFake(epoch)).TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	t.Parallel()

	l := NewFileLock(filepath.Join(t.TempDir(), "run.lock"), time.Minute, nil)
	assert.NoError(t, l.Release())
}

// A second process judged the lock stale, but before it could move the file
// the first reclaimer had already written a fresh lock in its place.
func TestReclaimKeepsLockReplacedAfterRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "run.lock")
	stale := []byte(fmt.Sprintf("%d\n111\n", epoch.Add(-time.Hour).Unix()))
	fresh := []byte(fmt.Sprintf("%d\n222\n", epoch.Unix()))
	require.NoError(t, os.WriteFile(path, fresh, 0o600))

	l := NewFileLock(path, 2*time.Minute, clock.NewFake(epoch))
	ok, err := l.reclaim(stale, epoch)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fresh, got, "the live lock is put back")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no stale copy left behind")
}

func TestReclaimRemovesLockStillStale(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "run.lock")
	stale := []byte(fmt.Sprintf("%d\n111\n", epoch.Add(-time.Hour).Unix()))
	require.NoError(t, os.WriteFile(path, stale, 0o600))

	l := NewFileLock(path, 2*time.Minute, clock.NewFake(epoch))
	ok, err := l.reclaim(stale, epoch)
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
