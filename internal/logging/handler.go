package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// fanoutHandler delivers each record to every child handler. Delivery is
// independent: a failing child never stops the others from seeing the record.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

// Enabled reports whether any child handles records at the given level.
func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h.handlers {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every enabled child, joining any errors.
func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, child := range h.handlers {
		if !child.Enabled(ctx, r.Level) {
			continue
		}
		if err := child.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a fanout over the children with the attrs applied.
func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make([]slog.Handler, len(h.handlers))
	for i, child := range h.handlers {
		children[i] = child.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: children}
}

// WithGroup returns a fanout over the children with the group applied.
func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	children := make([]slog.Handler, len(h.handlers))
	for i, child := range h.handlers {
		children[i] = child.WithGroup(name)
	}
	return &fanoutHandler{handlers: children}
}

// feedHandler mirrors filtered records into the in-memory feed.
type feedHandler struct {
	feed  *Feed
	level slog.Level
	attrs []slog.Attr
}

// componentKey labels the emitting subsystem; loggers attach it via
// slog.With(componentKey, "tui") and the feed surfaces it as its own column.
const componentKey = "component"

func newFeedHandler(feed *Feed, level slog.Level) *feedHandler {
	return &feedHandler{feed: feed, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *feedHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the slog record and appends it to the feed.
func (h *feedHandler) Handle(_ context.Context, r slog.Record) error {
	rec := Record{
		Time:    r.Time,
		Level:   r.Level,
		Source:  sourceLocation(r.PC),
		Message: r.Message,
	}

	var extra []string
	appendAttr := func(a slog.Attr) {
		if a.Key == componentKey {
			rec.Component = a.Value.String()
			return
		}
		extra = append(extra, a.Key+"="+a.Value.String())
	}

	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})

	if len(extra) > 0 {
		rec.Message += " " + strings.Join(extra, " ")
	}

	h.feed.Append(rec)
	return nil
}

// WithAttrs returns a handler that folds the attrs into every record.
func (h *feedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &feedHandler{feed: h.feed, level: h.level, attrs: merged}
}

// WithGroup is accepted but flattened; the feed renders flat lines only.
func (h *feedHandler) WithGroup(string) slog.Handler {
	return h
}

func sourceLocation(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	// Trailing path element only, the full path is noise in a viewer.
	file := frame.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return fmt.Sprintf("%s:%d", file, frame.Line)
}
