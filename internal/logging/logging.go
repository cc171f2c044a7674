// Package logging installs the process-wide diagnostic log pipeline: a
// daily-rotating file sink behind a non-blocking writer, plus a bounded
// in-memory feed for the UI log viewer. Both sinks share the minimum-severity
// filter sourced from UNITSCOPE_LOG_LEVEL (default info).
package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

const (
	// EnvLogLevel sets the minimum severity for both sinks
	// (debug, info, warn, error). Unset means info.
	EnvLogLevel = "UNITSCOPE_LOG_LEVEL"

	logBaseName         = "unitscope"
	defaultQueueSize    = 1024
	defaultFeedCapacity = 1000
)

// ErrAlreadyInitialized is returned by Init when the pipeline is already
// installed. Initialization happens exactly once per process; the guard must
// be closed before a re-initialization (tests do this, programs never should).
var ErrAlreadyInitialized = errors.New("logging already initialized")

var initialized atomic.Bool

// Options tunes Init. The zero value is usable.
type Options struct {
	// Level is the minimum severity when UNITSCOPE_LOG_LEVEL is unset.
	Level slog.Level
	// FeedCapacity bounds the in-memory feed; 0 means the default.
	FeedCapacity int
	// QueueSize bounds the non-blocking writer queue; 0 means the default.
	QueueSize int
}

// Guard owns the buffered file sink. Close flushes everything still queued;
// it must be held for the program's full lifetime (including the crash path)
// or buffered records are lost.
type Guard struct {
	writer *nonBlockingWriter
	feed   *Feed
}

// Feed returns the in-memory feed attached to the pipeline.
func (g *Guard) Feed() *Feed {
	return g.feed
}

// Close drains the queue, closes the file sink and releases the
// single-initialization slot. Safe to call more than once.
func (g *Guard) Close() error {
	err := g.writer.Close()
	initialized.Store(false)
	return err
}

// Init creates dataDir, wires both sinks into the slog default logger and
// returns the flush guard.
func Init(dataDir string, opts Options) (*Guard, error) {
	if !initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		initialized.Store(false)
		return nil, fmt.Errorf("log directory %s could not be created: %w", dataDir, err)
	}

	level := opts.Level
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = ParseLevel(env)
	}

	feed := NewFeed(opts.FeedCapacity)
	writer := newNonBlockingWriter(newDailyWriter(dataDir, logBaseName), opts.QueueSize)

	fileHandler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	// Feed first: its append never blocks, so a wedged disk backing up the
	// file queue cannot delay delivery to the viewer.
	slog.SetDefault(slog.New(newFanoutHandler(newFeedHandler(feed, level), fileHandler)))

	return &Guard{writer: writer, feed: feed}, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
