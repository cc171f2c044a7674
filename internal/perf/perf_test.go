package perf

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyOpen wraps the real openFile and counts calls.
func spyOpen(r *Recorder, counter *atomic.Int64) {
	real := r.openFile
	r.openFile = func(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
		counter.Add(1)
		return real(name, flag, perm)
	}
}

// parseFragment trims the trailing comma and closes the array, the documented
// consumer-side fixup, then parses the result.
func parseFragment(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := strings.TrimSuffix(string(data), ",\n") + "\n]"
	var events []map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &events))
	return events
}

func TestRecord_DisabledPerformsNoIO(t *testing.T) {
	t.Parallel()

	r := New()
	var opens atomic.Int64
	spyOpen(r, &opens)

	r.Record("ignored", 5*time.Millisecond)
	r.Measure("also ignored")()

	assert.False(t, r.Enabled())
	assert.Zero(t, opens.Load(), "a disabled recorder must not touch the filesystem")
}

func TestEnable_CreatesFragmentHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New()
	r.now = func() time.Time {
		return time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	}

	require.NoError(t, r.Enable(dir))
	assert.True(t, r.Enabled())

	path := r.Path()
	assert.Contains(t, path, "unitscope-trace-2026-08-28-10-30-00.log")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n", string(data))
}

func TestEnable_Twice(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Enable(t.TempDir()))
	assert.ErrorIs(t, r.Enable(t.TempDir()), ErrAlreadyEnabled)
}

func TestEnable_BadDirectory(t *testing.T) {
	t.Parallel()

	r := New()
	err := r.Enable("/nonexistent/nowhere")
	require.Error(t, err)
	assert.False(t, r.Enabled())
}

func TestRecord_EmitsEventsInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New()
	require.NoError(t, r.Enable(dir))

	r.Record("a", 10*time.Microsecond)
	r.Record("b", 20*time.Microsecond)

	events := parseFragment(t, r.Path())
	require.Len(t, events, 2)

	assert.Equal(t, "a", events[0]["name"])
	assert.Equal(t, float64(10), events[0]["dur"])
	assert.Equal(t, "b", events[1]["name"])
	assert.Equal(t, float64(20), events[1]["dur"])

	for _, ev := range events {
		assert.Equal(t, "PERF", ev["cat"])
		assert.Equal(t, "X", ev["ph"])
		assert.Greater(t, ev["ts"], float64(0))
	}
}

func TestRecord_ConcurrentWritersDoNotInterleave(t *testing.T) {
	t.Parallel()

	const (
		writers = 8
		events  = 100
	)

	dir := t.TempDir()
	r := New()
	require.NoError(t, r.Enable(dir))

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < events; i++ {
				r.Record("evt", time.Duration(i)*time.Microsecond)
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(r.Path())
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	assert.Equal(t, "[", scanner.Text())

	count := 0
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), ",")
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &ev), "line %d is not intact JSON: %q", count+2, line)
		count++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, writers*events, count)

	// The fragment parses whole after the documented fixup, too.
	assert.Len(t, parseFragment(t, r.Path()), writers*events)
}

func TestRecord_WriteFailureDisablesTracing(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Enable(t.TempDir()))

	var opens atomic.Int64
	r.openFile = func(string, int, os.FileMode) (io.WriteCloser, error) {
		opens.Add(1)
		return nil, errors.New("disk gone")
	}

	r.Record("first", time.Microsecond)
	assert.False(t, r.Enabled(), "a failed append disables the recorder")

	r.Record("second", time.Microsecond)
	assert.Equal(t, int64(1), opens.Load(), "subsequent records are no-ops")
}

func TestMeasure_RecordsElapsed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New()
	require.NoError(t, r.Enable(dir))

	current := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	stop := r.Measure("span")
	current = current.Add(42 * time.Microsecond)
	stop()

	events := parseFragment(t, r.Path())
	require.Len(t, events, 1)
	assert.Equal(t, "span", events[0]["name"])
	assert.Equal(t, float64(42), events[0]["dur"])
}
