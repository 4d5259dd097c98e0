package scheduler

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/livetrade/pkg/clock"
)

// Locker is a mutual-exclusion token shared between processes.
type Locker interface {
	TryAcquire() (bool, error)
	Release() error
}

// FileLock stores the acquisition time (unix seconds) and pid in a file.
// A lock older than TTL is treated as abandoned and reclaimed, so a crashed
// run cannot block the schedule forever.
type FileLock struct {
	Path  string
	TTL   time.Duration
	Clock clock.Clock

	mu    sync.Mutex
	token string
}

func NewFileLock(path string, ttl time.Duration, clk clock.Clock) *FileLock {
	if clk == nil {
		clk = clock.Real{}
	}
	return &FileLock{Path: path, TTL: ttl, Clock: clk}
}

// TryAcquire reports false, without error, when another holder's lock is
// still fresh.
func (l *FileLock) TryAcquire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return false, fmt.Errorf("lock dir: %w", err)
	}

	now := l.Clock.Now()
	token := fmt.Sprintf("%d\n%d\n", now.Unix(), os.Getpid())

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := f.WriteString(token)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(l.Path)
				return false, errors.Join(werr, cerr)
			}
			l.token = token
			return true, nil
		}
		if !os.IsExist(err) {
			return false, err
		}

		seen, err := os.ReadFile(l.Path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		if held, ok := parseStamp(seen); ok && now.Sub(held) < l.TTL {
			return false, nil
		}
		// stale or unreadable: reclaim
		reclaimed, err := l.reclaim(seen, now)
		if err != nil || !reclaimed {
			return false, err
		}
	}
	return false, nil
}

// reclaim moves the lock file aside and keeps it out only if it still holds
// the stale contents seen. A fresh lock written by another process in the
// meantime is linked back into place.
func (l *FileLock) reclaim(seen []byte, now time.Time) (bool, error) {
	aside := fmt.Sprintf("%s.stale.%d.%d", l.Path, os.Getpid(), now.UnixNano())
	if err := os.Rename(l.Path, aside); err != nil {
		if os.IsNotExist(err) {
			// someone else reclaimed it first; race them for the create
			return true, nil
		}
		return false, err
	}
	defer os.Remove(aside)

	got, err := os.ReadFile(aside)
	if err != nil {
		return false, err
	}
	if bytes.Equal(got, seen) {
		return true, nil
	}
	if err := os.Link(aside, l.Path); err != nil && !os.IsExist(err) {
		return false, fmt.Errorf("restore live lock: %w", err)
	}
	return false, nil
}

// Release removes the lock if this FileLock still owns it.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == "" {
		return nil
	}
	b, err := os.ReadFile(l.Path)
	if err == nil && string(b) != l.token {
		// reclaimed by someone else after our TTL ran out
		l.token = ""
		return nil
	}
	l.token = ""
	if err := os.Remove(l.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func parseStamp(b []byte) (time.Time, bool) {
	first, _, _ := strings.Cut(string(b), "\n")
	sec, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(int64(sec), 0), true
}
