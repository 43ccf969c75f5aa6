package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"log/syslog"
	"net/url"
	"strings"
	"sync"
)

// severityWriter is the subset of *syslog.Writer the drain needs.
type severityWriter interface {
	Err(m string) error
	Warning(m string) error
	Info(m string) error
	Debug(m string) error
	Close() error
}

var dialSyslog = func(network, addr, tag string) (severityWriter, error) {
	return syslog.Dial(network, addr, syslog.LOG_INFO|syslog.LOG_USER, tag)
}

// dialDrain connects to a syslog drain given as udp://, tcp:// or syslog://
// host:port. syslog:// is treated as udp.
func dialDrain(rawURL, tag string) (severityWriter, error) {
	network, addr, err := parseDrainURL(rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tag) == "" {
		tag = "app"
	}
	w, err := dialSyslog(network, addr, tag)
	if err != nil {
		return nil, fmt.Errorf("dial log drain %s: %w", addr, err)
	}
	return w, nil
}

func parseDrainURL(rawURL string) (network, addr string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("parse log drain url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "udp", "syslog":
		network = "udp"
	case "tcp":
		network = "tcp"
	default:
		return "", "", fmt.Errorf("unsupported log drain scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return "", "", fmt.Errorf("log drain url %q needs host and port", rawURL)
	}
	return network, u.Host, nil
}

// drainHandler renders records as JSON and ships each one to the syslog sink
// at the matching severity.
type drainHandler struct {
	mu   *sync.Mutex
	buf  *bytes.Buffer
	json slog.Handler
	sink severityWriter
}

func newDrainHandler(sink severityWriter, opts *slog.HandlerOptions) *drainHandler {
	buf := &bytes.Buffer{}
	return &drainHandler{
		mu:   &sync.Mutex{},
		buf:  buf,
		json: slog.NewJSONHandler(buf, opts),
		sink: sink,
	}
}

func (h *drainHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.json.Enabled(ctx, level)
}

func (h *drainHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	h.buf.Reset()
	err := h.json.Handle(ctx, r)
	line := strings.TrimRight(h.buf.String(), "\n")
	h.mu.Unlock()
	if err != nil {
		return err
	}

	switch {
	case r.Level >= slog.LevelError:
		return h.sink.Err(line)
	case r.Level >= slog.LevelWarn:
		return h.sink.Warning(line)
	case r.Level >= slog.LevelInfo:
		return h.sink.Info(line)
	default:
		return h.sink.Debug(line)
	}
}

func (h *drainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &drainHandler{mu: h.mu, buf: h.buf, json: h.json.WithAttrs(attrs), sink: h.sink}
}

func (h *drainHandler) WithGroup(name string) slog.Handler {
	return &drainHandler{mu: h.mu, buf: h.buf, json: h.json.WithGroup(name), sink: h.sink}
}
