// Package crash is the last-resort error boundary of the application. On an
// unrecoverable failure it restores the terminal, writes a best-effort crash
// dump, flushes buffered logs and prints a readable report to stderr before
// terminating with a failure status.
package crash

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
)

// Boundary handles fatal failures. Install one at the top of main, register
// the terminal-restore primitive once the UI owns the terminal, and defer
// Recover around the main execution path.
//
// Sequence on failure: restore terminal -> write dump -> flush logs ->
// report -> exit(1). Restoration failure is logged and swallowed; the report
// is produced regardless.
type Boundary struct {
	mu      sync.Mutex
	restore func() error

	flush   func() error
	dumps   *DumpWriter
	stderr  io.Writer
	exit    func(code int)
	lastErr bool // report newest frame last (oldest first)
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithFlush registers a log-flush hook run before the report is printed, so
// buffered log lines are not lost on the crash path.
func WithFlush(fn func() error) Option {
	return func(b *Boundary) { b.flush = fn }
}

// WithDumpWriter enables JSON crash dumps.
func WithDumpWriter(w *DumpWriter) Option {
	return func(b *Boundary) { b.dumps = w }
}

// WithStderr redirects the crash report, for tests.
func WithStderr(w io.Writer) Option {
	return func(b *Boundary) { b.stderr = w }
}

// WithExit replaces os.Exit, for tests.
func WithExit(fn func(code int)) Option {
	return func(b *Boundary) { b.exit = fn }
}

// NewBoundary creates a boundary. The terminal-restore primitive is
// registered later via SetRestore, once the UI program exists.
func NewBoundary(opts ...Option) *Boundary {
	b := &Boundary{
		stderr:  os.Stderr,
		exit:    os.Exit,
		lastErr: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetRestore registers the fallible terminal-restore primitive. Safe to call
// from any goroutine; a nil fn clears it.
func (b *Boundary) SetRestore(fn func() error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restore = fn
}

// Recover is the deferred entry point:
//
//	defer boundary.Recover()
//
// It only acts on a panic; normal returns pass through untouched. It never
// returns control to the faulted execution context.
func (b *Boundary) Recover() {
	if r := recover(); r != nil {
		pcs := make([]uintptr, 64)
		n := runtime.Callers(3, pcs)
		b.handle(r, pcs[:n], debug.Stack())
	}
}

// Fail terminates through the same restore-report-exit path for fatal errors
// that surface as values rather than panics.
func (b *Boundary) Fail(err error) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	b.handle(err, pcs[:n], debug.Stack())
}

func (b *Boundary) handle(value any, pcs []uintptr, rawStack []byte) {
	b.mu.Lock()
	restore := b.restore
	b.mu.Unlock()

	if restore != nil {
		if err := restore(); err != nil {
			slog.Error("unable to restore terminal", "error", err)
		}
	}

	if b.dumps != nil {
		if path, err := b.dumps.Write(value, rawStack); err != nil {
			slog.Error("unable to write crash dump", "error", err)
		} else {
			slog.Error("crash dump written", "path", path)
		}
	}

	if b.flush != nil {
		_ = b.flush()
	}

	b.report(value, pcs)
	b.exit(1)
}

func (b *Boundary) report(value any, pcs []uintptr) {
	fmt.Fprintf(b.stderr, "unitscope crashed: %v\n\n", value)

	frames := collectFrames(pcs)
	if b.lastErr {
		// Oldest frame first; the faulting line ends up next to the prompt.
		for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
			frames[i], frames[j] = frames[j], frames[i]
		}
	}
	for _, f := range frames {
		fmt.Fprintf(b.stderr, "  %s\n      %s:%d\n", f.Function, f.File, f.Line)
	}
}

func collectFrames(pcs []uintptr) []runtime.Frame {
	var out []runtime.Frame
	iter := runtime.CallersFrames(pcs)
	for {
		frame, more := iter.Next()
		if frame.Function != "" && !isRuntimeFrame(frame.Function) {
			out = append(out, frame)
		}
		if !more {
			return out
		}
	}
}

func isRuntimeFrame(fn string) bool {
	return len(fn) > 8 && fn[:8] == "runtime."
}
