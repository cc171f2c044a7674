package logging

import (
	"io"
	"sync"
)

// nonBlockingWriter decouples callers from disk I/O: Write enqueues a copy of
// the payload and returns, while a background goroutine drains the queue into
// the underlying writer. When the queue is full the enqueue blocks
// (backpressure), it never drops. Close drains everything still queued before
// closing the underlying writer.
type nonBlockingWriter struct {
	mu     sync.Mutex
	closed bool
	queue  chan []byte
	done   chan struct{}
	out    io.WriteCloser
}

func newNonBlockingWriter(out io.WriteCloser, queueSize int) *nonBlockingWriter {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	w := &nonBlockingWriter{
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
		out:   out,
	}
	go w.flushLoop()
	return w
}

func (w *nonBlockingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	w.queue <- buf
	return len(p), nil
}

func (w *nonBlockingWriter) flushLoop() {
	defer close(w.done)
	for buf := range w.queue {
		// A failed flush cannot be reported to the (long gone) caller;
		// keep draining so the queue never wedges.
		_, _ = w.out.Write(buf)
	}
}

func (w *nonBlockingWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	return w.out.Close()
}
