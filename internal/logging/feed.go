package logging

import (
	"log/slog"
	"sync"
	"time"
)

// Record is a single log record as held by the in-memory feed.
type Record struct {
	Time      time.Time
	Level     slog.Level
	Source    string // file:line of the call site, empty when unknown
	Component string
	Message   string
}

// Feed is a bounded in-memory buffer of recent log records, consumed by the
// UI log viewer. When full, appending evicts the oldest record; this is
// ring-buffer policy, never an error. Independent of the file sink.
type Feed struct {
	mu      sync.Mutex
	records []Record
	head    int // index of the oldest record once full
	size    int
	seq     uint64 // total records ever appended, for cheap change detection
}

// NewFeed creates a feed holding at most capacity records.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultFeedCapacity
	}
	return &Feed{records: make([]Record, capacity)}
}

// Append adds a record, evicting the oldest when the feed is full.
func (f *Feed) Append(r Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.size < len(f.records) {
		f.records[(f.head+f.size)%len(f.records)] = r
		f.size++
	} else {
		f.records[f.head] = r
		f.head = (f.head + 1) % len(f.records)
	}
	f.seq++
}

// Snapshot returns the buffered records, oldest first.
func (f *Feed) Snapshot() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Record, f.size)
	for i := 0; i < f.size; i++ {
		out[i] = f.records[(f.head+i)%len(f.records)]
	}
	return out
}

// Len returns the number of buffered records.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Seq returns a counter that increases with every append. The UI polls it to
// skip re-rendering an unchanged feed.
func (f *Feed) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}
