package crash

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Dump is the JSON artifact written next to the logs when the process dies.
type Dump struct {
	Timestamp  time.Time `json:"timestamp"`
	ProcessID  int       `json:"process_id"`
	GoVersion  string    `json:"go_version"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace,omitempty"`
}

// DumpWriter persists crash dumps under a directory, pruning the oldest ones
// beyond a bound.
type DumpWriter struct {
	dir      string
	maxFiles int
}

// NewDumpWriter writes dumps into dir, keeping at most maxFiles of them.
func NewDumpWriter(dir string, maxFiles int) *DumpWriter {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	return &DumpWriter{dir: dir, maxFiles: maxFiles}
}

// Write marshals and stores a dump, returning its path.
func (w *DumpWriter) Write(panicValue any, stack []byte) (string, error) {
	dump := Dump{
		Timestamp:  time.Now().UTC(),
		ProcessID:  os.Getpid(),
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(stack),
	}

	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating crash dump dir: %w", err)
	}

	path := filepath.Join(w.dir,
		fmt.Sprintf("crash-%s.json", dump.Timestamp.Format("2006-01-02T15-04-05")))

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling crash dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing crash dump: %w", err)
	}

	_ = w.prune()
	return path, nil
}

// prune removes the oldest dumps exceeding maxFiles.
func (w *DumpWriter) prune() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	var dumps []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".json") {
			dumps = append(dumps, e)
		}
	}

	sort.Slice(dumps, func(i, j int) bool {
		return dumps[i].Name() < dumps[j].Name()
	})

	for len(dumps) > w.maxFiles {
		if err := os.Remove(filepath.Join(w.dir, dumps[0].Name())); err != nil {
			return err
		}
		dumps = dumps[1:]
	}
	return nil
}
