// Package logging configures structured logging of the indicator.
package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// ANSI colors of log levels.
const (
	colorReset = "\033[0m"
	colorDebug = "\033[36m"
	colorInfo  = "\033[32m"
	colorWarn  = "\033[33m"
	colorError = "\033[31m"
)

// ColorTextHandler formats records with [slog.TextHandler] and prefixes them
// with a colored level.
type ColorTextHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	buf   *bytes.Buffer
	inner slog.Handler
}

// NewColorTextHandler returns a new [ColorTextHandler] that writes to w.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions) *ColorTextHandler {
	var o slog.HandlerOptions
	if opts != nil {
		o = *opts
	}

	replace := o.ReplaceAttr
	o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		// Level is rendered as the colored prefix.
		if len(groups) == 0 && a.Key == slog.LevelKey {
			return slog.Attr{}
		}

		if replace != nil {
			return replace(groups, a)
		}

		return a
	}

	buf := new(bytes.Buffer)

	return &ColorTextHandler{
		w:     w,
		mu:    new(sync.Mutex),
		buf:   buf,
		inner: slog.NewTextHandler(buf, &o),
	}
}

// Enabled implements [slog.Handler].
func (h *ColorTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements [slog.Handler].
func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()

	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	line := make([]byte, 0, h.buf.Len()+32)
	line = append(line, levelColor(r.Level)...)
	line = append(line, r.Level.String()...)
	line = append(line, colorReset...)
	line = append(line, ' ', ' ')
	line = append(line, h.buf.Bytes()...)

	_, err := h.w.Write(line)
	return err
}

// WithAttrs implements [slog.Handler].
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorTextHandler{
		w:     h.w,
		mu:    h.mu,
		buf:   h.buf,
		inner: h.inner.WithAttrs(attrs),
	}
}

// WithGroup implements [slog.Handler].
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return &ColorTextHandler{
		w:     h.w,
		mu:    h.mu,
		buf:   h.buf,
		inner: h.inner.WithGroup(name),
	}
}

// New returns a logger that writes colored text records to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewColorTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}
