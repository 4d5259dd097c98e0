package risk

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/livetrade/pkg/clock"
)

const dateLayout = "2006-01-02"

// stateFile is the on-disk layout: {"daily": {"date": ..., "equity_start": ...}}.
type stateFile struct {
	Daily *DailyState `json:"daily,omitempty"`
}

// DayStore owns the persisted daily baseline. It is the only writer of the
// state file; the file is rewritten wholesale on every rotation.
type DayStore struct {
	Path  string
	Clock clock.Clock

	mu sync.Mutex
}

func NewDayStore(path string, clk clock.Clock) *DayStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &DayStore{Path: path, Clock: clk}
}

// Today is the current UTC calendar date.
func (s *DayStore) Today() string {
	return s.Clock.Now().UTC().Format(dateLayout)
}

// Load returns the stored baseline. A missing or corrupt file yields nil.
func (s *DayStore) Load() *DailyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *DayStore) load() *DailyState {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", s.Path).Warn("daystore: read failed, starting empty")
		}
		return nil
	}
	var f stateFile
	if err := json.Unmarshal(b, &f); err != nil {
		logrus.WithError(err).WithField("path", s.Path).Warn("daystore: corrupt state, starting empty")
		return nil
	}
	return f.Daily
}

// GetOrInit returns today's baseline, creating it from equityNow the first
// time it is asked for on a new day. The first baseline of a day wins.
// Persistence failures are logged and the fresh baseline is still returned.
func (s *DayStore) GetOrInit(equityNow float64) DailyState {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.Today()
	if cur := s.load(); cur != nil && cur.Date == today {
		return *cur
	}

	next := DailyState{Date: today, EquityStart: equityNow}
	if err := s.save(next); err != nil {
		logrus.WithError(err).WithField("path", s.Path).Error("daystore: persist baseline failed")
	} else {
		logrus.WithFields(logrus.Fields{"date": today, "equity_start": equityNow}).Info("daystore: new trading day baseline")
	}
	return next
}

func (s *DayStore) save(st DailyState) error {
	b, err := json.MarshalIndent(stateFile{Daily: &st}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(s.Path, append(b, '\n'), 0o600)
}

// writeFileAtomic writes data to path atomically (tmp file + fsync + rename).
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	// best-effort fsync of the parent so the rename survives a crash
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
