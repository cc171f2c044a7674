// Package perf is an opt-in recorder of timed performance events in the
// chrome://tracing format, for inspection with Perfetto and friends.
//
// Known limitation, kept on purpose: the emitted file is a fragment, not
// valid JSON. It opens with "[" and every event ends with a trailing comma;
// consumers strip the last comma and append "]" before parsing. Downstream
// tooling already expects this shape.
package perf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyEnabled is returned when Enable is called twice on a recorder;
// the trace file is created exactly once per process.
var ErrAlreadyEnabled = errors.New("tracing already enabled")

type traceEvent struct {
	Name string `json:"name"`
	Cat  string `json:"cat"`
	Ph   string `json:"ph"`
	Ts   int64  `json:"ts"`
	Dur  int64  `json:"dur"`
}

// Recorder appends timed events to a per-process trace file. The zero cost
// path is the disabled one: Record checks the flag before touching the clock
// or the filesystem. A disabled recorder performs no I/O at all.
//
// Each event is written as one atomic open-append-close sequence under the
// recorder mutex, so concurrent callers never interleave partial lines. The
// file handle is deliberately not kept open between events.
type Recorder struct {
	enabled atomic.Bool
	mu      sync.Mutex
	path    string

	// Seams for tests.
	openFile func(name string, flag int, perm os.FileMode) (io.WriteCloser, error)
	now      func() time.Time
}

// New returns a disabled recorder.
func New() *Recorder {
	return &Recorder{
		openFile: func(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
			return os.OpenFile(name, flag, perm)
		},
		now: time.Now,
	}
}

// Enable creates the trace file under dataDir, named after the current time
// to second precision, writes the opening bracket and turns the recorder on.
func (r *Recorder) Enable(dataDir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enabled.Load() {
		return ErrAlreadyEnabled
	}

	stamp := r.now().Format("2006-01-02-15-04-05")
	path := filepath.Join(dataDir, fmt.Sprintf("unitscope-trace-%s.log", stamp))

	f, err := r.openFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if _, err := f.Write([]byte("[\n")); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing trace file header: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing trace file: %w", err)
	}

	r.path = path
	r.enabled.Store(true)
	return nil
}

// Enabled reports whether events are being recorded.
func (r *Recorder) Enabled() bool {
	return r.enabled.Load()
}

// Path returns the trace file path, empty until Enable succeeds.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Record appends one complete-phase event with the given duration. A write
// failure disables the recorder rather than taking the host down; tracing is
// a diagnostic aid, not a load-bearing feature.
func (r *Recorder) Record(name string, d time.Duration) {
	if !r.enabled.Load() {
		return
	}

	line, err := json.Marshal(traceEvent{
		Name: name,
		Cat:  "PERF",
		Ph:   "X",
		Ts:   r.now().UnixMicro(),
		Dur:  d.Microseconds(),
	})
	if err != nil {
		return
	}
	line = append(line, ',', '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	// A concurrent failed write may have disabled us while we marshaled.
	if !r.enabled.Load() {
		return
	}

	f, err := r.openFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		r.disable(err)
		return
	}
	_, werr := f.Write(line)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		r.disable(werr)
	}
}

// Measure returns a stop function that records the elapsed time under name.
//
//	defer recorder.Measure("render")()
func (r *Recorder) Measure(name string) func() {
	if !r.enabled.Load() {
		return func() {}
	}
	start := r.now()
	return func() {
		r.Record(name, r.now().Sub(start))
	}
}

// disable must be called with r.mu held.
func (r *Recorder) disable(err error) {
	r.enabled.Store(false)
	slog.Error("perf tracing disabled after write failure", "error", err, "path", r.path)
}
