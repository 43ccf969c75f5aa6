// Package logging configures the process-wide structured logger.
//
// Records are written as JSON to stdout, which the platform forwards to the
// log aggregation add-on. When LOG_DRAIN_URL points at a syslog endpoint the
// same records are also shipped there directly.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes the logger for one process.
type Config struct {
	Service     string
	Environment string
	Process     string
	Level       string
	DrainURL    string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values fall back
// to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger and returns the closer for any remote drain it opened.
// An unreachable or malformed drain is reported on the console and skipped so
// the process still starts.
func New(cfg Config) (*slog.Logger, func() error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	console := slog.NewJSONHandler(out, opts)
	handlers := []slog.Handler{console}
	closer := func() error { return nil }

	var drainErr error
	if drainURL := strings.TrimSpace(cfg.DrainURL); drainURL != "" {
		sink, err := dialDrain(drainURL, cfg.Service)
		if err != nil {
			drainErr = err
		} else {
			handlers = append(handlers, newDrainHandler(sink, opts))
			closer = sink.Close
		}
	}

	logger := slog.New(fanout(handlers)).With(defaultAttrs(cfg)...)
	if drainErr != nil {
		logger.Warn("LOG_DRAIN_URL unreachable - logging to console only", Err(drainErr))
	}
	return logger, closer
}

// Setup builds the logger and installs it as the process default so plain
// log.Printf calls are structured as well.
func Setup(cfg Config) func() error {
	logger, closer := New(cfg)
	slog.SetDefault(logger)
	return closer
}

func defaultAttrs(cfg Config) []any {
	var attrs []any
	if v := strings.TrimSpace(cfg.Service); v != "" {
		attrs = append(attrs, slog.String("service", v))
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "development"
	}
	attrs = append(attrs, slog.String("environment", env))
	if v := strings.TrimSpace(cfg.Process); v != "" {
		attrs = append(attrs, slog.String("process", v))
	}
	return attrs
}

// Err returns an attribute for err under the conventional "error" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

type fanoutHandler []slog.Handler

func fanout(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return fanoutHandler(handlers)
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, len(h))
	for i, handler := range h {
		next[i] = handler.WithAttrs(attrs)
	}
	return next
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, len(h))
	for i, handler := range h {
		next[i] = handler.WithGroup(name)
	}
	return next
}
