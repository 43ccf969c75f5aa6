// Package simulate triggers the platform failure modes on demand: process
// crash (H10), request timeout (H12), memory growth (R14) and CPU saturation.
package simulate

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/config"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/platform/procmem"
)

// Defaults for the failure simulations.
const (
	CrashDelay = time.Second

	DefaultTimeout = 35 * time.Second
	MaxTimeout     = 10 * time.Minute

	LeakChunkSize = 10 << 20
	LeakInterval  = time.Second
	LeakMaxChunks = 50

	CPUIterations = 1_000_000_000
)

// Crasher exits the process shortly after a crash is requested so the
// response can still be written.
type Crasher struct {
	Delay  time.Duration
	Logger *slog.Logger
	// Exit defaults to config.ExitCodef.
	Exit func(code int, format string, args ...any)
}

// Schedule arms the crash and returns immediately.
func (c *Crasher) Schedule() {
	delay := c.Delay
	if delay <= 0 {
		delay = CrashDelay
	}
	exit := c.Exit
	if exit == nil {
		exit = config.ExitCodef
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	time.AfterFunc(delay, func() {
		logger.Error("Intentional crash for H10 testing")
		exit(1, "Intentional crash for H10 testing")
	})
}

// TimeoutDuration converts a requested millisecond count into a sleep
// duration: non-positive values use DefaultTimeout, large ones are capped.
func TimeoutDuration(ms int64) time.Duration {
	if ms <= 0 {
		return DefaultTimeout
	}
	if ms > int64(MaxTimeout/time.Millisecond) {
		return MaxTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

// Sleep blocks for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Burn sums sqrt(i) for i in [0, iterations) and reports the elapsed time.
func Burn(iterations int) (float64, time.Duration) {
	start := time.Now()
	result := 0.0
	for i := 0; i < iterations; i++ {
		result += math.Sqrt(float64(i))
	}
	return result, time.Since(start)
}

// Leaker grows process memory one chunk per interval and keeps every chunk.
// Only one leak runs at a time.
type Leaker struct {
	ChunkSize int
	Interval  time.Duration
	// MaxChunks stops the leak once more than this many chunks are held.
	MaxChunks int
	Logger    *slog.Logger
	Metrics   *observability.Metrics

	mu      sync.Mutex
	running bool
	chunks  [][]byte
	done    chan struct{}
}

// Start begins a leak bound to ctx. It returns false when a leak is already
// running.
func (l *Leaker) Start(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return false
	}
	l.running = true
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	return true
}

// Running reports whether a leak is in progress.
func (l *Leaker) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Chunks reports how many chunks are held.
func (l *Leaker) Chunks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chunks)
}

// Wait blocks until the current leak, if any, has stopped.
func (l *Leaker) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (l *Leaker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	size, interval, limit := l.ChunkSize, l.Interval, l.MaxChunks
	if size <= 0 {
		size = LeakChunkSize
	}
	if interval <= 0 {
		interval = LeakInterval
	}
	if limit <= 0 {
		limit = LeakMaxChunks
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		chunk := make([]byte, size)
		// Touch every page so the allocation shows up in RSS.
		for i := 0; i < len(chunk); i += 4096 {
			chunk[i] = 1
		}
		l.mu.Lock()
		l.chunks = append(l.chunks, chunk)
		held := len(l.chunks)
		l.mu.Unlock()
		l.Metrics.SetLeakedChunks(held)

		mem := procmem.Read(ctx).Human()
		logger.Warn("Memory usage:", "heapUsed", mem.Used, "heapTotal", mem.Total, "rss", mem.RSS, "chunks", held)

		if held > limit {
			logger.Error("Memory leak stopped at 500MB to prevent complete crash", "chunks", held)
			return
		}
	}
}
