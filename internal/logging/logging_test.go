package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise process-wide state (the slog default logger and the
// single-initialization slot) and therefore do not run in parallel.

func initForTest(t *testing.T, dir string, opts Options) *Guard {
	t.Helper()
	guard, err := Init(dir, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = guard.Close() })
	return guard
}

func TestInit_CreatesDataDir(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	dir := filepath.Join(t.TempDir(), "nested", "data")
	guard := initForTest(t, dir, Options{})

	slog.Info("hello from test")
	require.NoError(t, guard.Close())

	data, err := os.ReadFile(filepath.Join(dir, "unitscope.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}

func TestInit_SecondCallFails(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	initForTest(t, t.TempDir(), Options{})

	_, err := Init(t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInit_DirectoryCreationFailure(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	dir := t.TempDir()
	// A file where the directory should go makes MkdirAll fail.
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Init(filepath.Join(blocker, "logs"), Options{})
	require.Error(t, err)

	// The failed call must release the initialization slot.
	guard, err := Init(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, guard.Close())
}

func TestInit_FilterAppliesToBothSinks(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	dir := t.TempDir()
	guard := initForTest(t, dir, Options{Level: slog.LevelWarn})

	slog.Info("below the filter")
	slog.Warn("at the filter")
	slog.Error("above the filter")

	feed := guard.Feed()
	records := feed.Snapshot()
	require.Len(t, records, 2)
	assert.Equal(t, "at the filter", records[0].Message)
	assert.Equal(t, "above the filter", records[1].Message)

	require.NoError(t, guard.Close())
	data, err := os.ReadFile(filepath.Join(dir, "unitscope.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below the filter")
	assert.Contains(t, string(data), "at the filter")
	assert.Contains(t, string(data), "above the filter")
}

func TestInit_EnvLevelWinsOverOption(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	dir := t.TempDir()
	guard := initForTest(t, dir, Options{Level: slog.LevelDebug})

	slog.Warn("suppressed by env filter")
	slog.Error("kept")

	records := guard.Feed().Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
}

func TestInit_FeedRecordCarriesMetadata(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	guard := initForTest(t, t.TempDir(), Options{})

	slog.With("component", "tui").Info("sized", "width", 80)

	records := guard.Feed().Snapshot()
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, slog.LevelInfo, r.Level)
	assert.Equal(t, "tui", r.Component)
	assert.Contains(t, r.Message, "sized")
	assert.Contains(t, r.Message, "width=80")
	assert.Contains(t, r.Source, "logging_test.go:")
	assert.False(t, r.Time.IsZero())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}
