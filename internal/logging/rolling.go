package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// dailyWriter appends to <dir>/<base>.log and rotates it on the first write
// of a new day: the previous file is renamed to <base>.log.<YYYY-MM-DD> and
// a fresh active file is opened. Prior rotations are kept intact.
type dailyWriter struct {
	mu   sync.Mutex
	dir  string
	base string
	day  string
	f    *os.File

	now func() time.Time
}

const dayFormat = "2006-01-02"

func newDailyWriter(dir, base string) *dailyWriter {
	return &dailyWriter{dir: dir, base: base, now: time.Now}
}

func (w *dailyWriter) activePath() string {
	return filepath.Join(w.dir, w.base+".log")
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().Format(dayFormat)
	if w.f == nil || day != w.day {
		if err := w.open(day); err != nil {
			return 0, err
		}
	}
	return w.f.Write(p)
}

// open rotates a stale active file out of the way, then opens a fresh one.
// Must be called with w.mu held.
func (w *dailyWriter) open(day string) error {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}

	path := w.activePath()
	if info, err := os.Stat(path); err == nil {
		if prev := info.ModTime().Format(dayFormat); prev != day {
			rotated := fmt.Sprintf("%s.%s", path, prev)
			if err := os.Rename(path, rotated); err != nil {
				return fmt.Errorf("rotating %s: %w", path, err)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	w.f = f
	w.day = day
	return nil
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
