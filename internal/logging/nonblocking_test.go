package logging

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureWriter is an in-memory WriteCloser recording everything flushed.
type captureWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *captureWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureWriter) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestNonBlockingWriter_FlushesOnClose(t *testing.T) {
	t.Parallel()

	out := &captureWriter{}
	w := newNonBlockingWriter(out, 8)

	for _, line := range []string{"a\n", "b\n", "c\n"} {
		n, err := w.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	require.NoError(t, w.Close())
	assert.Equal(t, "a\nb\nc\n", out.String(), "close drains the queue in order")
	assert.True(t, out.closed)
}

func TestNonBlockingWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	out := &captureWriter{}
	w := newNonBlockingWriter(out, 8)
	require.NoError(t, w.Close())

	_, err := w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestNonBlockingWriter_CloseTwice(t *testing.T) {
	t.Parallel()

	w := newNonBlockingWriter(&captureWriter{}, 8)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestNonBlockingWriter_ManyConcurrentWriters(t *testing.T) {
	t.Parallel()

	out := &captureWriter{}
	w := newNonBlockingWriter(out, 4) // small queue to exercise backpressure

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := w.Write([]byte("x\n"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	assert.Len(t, out.String(), 8*50*2, "every queued byte is flushed, none dropped")
}
