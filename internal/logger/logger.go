// Package logger configures the process-wide slog logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Options selects the console handler and the optional warnings file.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // receives warnings and above; empty disables it
}

// Setup installs the default logger and returns a function closing the log
// file, if any.
func Setup(opts Options) (func() error, error) {
	return setup(os.Stdout, opts)
}

func setup(console io.Writer, opts Options) (func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(console, hopts)
	} else {
		handler = slog.NewTextHandler(console, hopts)
	}

	closer := func() error { return nil }
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // path from config
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelWarn})
		handler = fanout{handler, fileHandler}
		closer = f.Close
	}

	slog.SetDefault(slog.New(handler).With("name", "adzuna-ads"))
	return closer, nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Timer measures one named operation. Call Stop where the operation ends.
type Timer struct {
	name  string
	log   *slog.Logger
	start time.Time
}

// StartTimer starts timing name, logging through log (the default logger
// when nil).
func StartTimer(log *slog.Logger, name string) *Timer {
	if log == nil {
		log = slog.Default()
	}
	return &Timer{name: name, log: log, start: time.Now()}
}

// Stop logs and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.log.Info("finished", "operation", t.name, "duration", d.Round(time.Millisecond).String())
	return d
}
