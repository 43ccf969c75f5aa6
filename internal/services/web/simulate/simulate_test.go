package simulate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCrasherExitsWithStatusOne(t *testing.T) {
	got := make(chan string, 1)
	c := &Crasher{
		Delay:  5 * time.Millisecond,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Exit: func(code int, format string, args ...any) {
			got <- fmt.Sprintf("%d %s", code, fmt.Sprintf(format, args...))
		},
	}
	c.Schedule()

	select {
	case value := <-got:
		if value != "1 Intentional crash for H10 testing" {
			t.Fatalf("exit = %q", value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("crash was not triggered")
	}
}

func TestTimeoutDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want time.Duration
	}{
		{ms: 0, want: 35 * time.Second},
		{ms: -5, want: 35 * time.Second},
		{ms: 250, want: 250 * time.Millisecond},
		{ms: 24 * 60 * 60 * 1000, want: 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := TimeoutDuration(tt.ms); got != tt.want {
			t.Fatalf("TimeoutDuration(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep did not return promptly")
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}
}

func TestBurn(t *testing.T) {
	result, elapsed := Burn(5)
	// sqrt(0)+sqrt(1)+sqrt(2)+sqrt(3)+sqrt(4)
	if result < 6.146 || result > 6.147 {
		t.Fatalf("result = %v, want ~6.1463", result)
	}
	if elapsed < 0 {
		t.Fatalf("elapsed = %v", elapsed)
	}
}

func TestLeakerStopsAfterLimit(t *testing.T) {
	var buf safeBuffer
	l := &Leaker{
		ChunkSize: 1024,
		Interval:  time.Millisecond,
		MaxChunks: 3,
		Logger:    slog.New(slog.NewJSONHandler(&buf, nil)),
	}
	if !l.Start(context.Background()) {
		t.Fatal("expected leak to start")
	}
	l.Wait()

	if l.Running() {
		t.Fatal("expected leak to stop")
	}
	if got := l.Chunks(); got != 4 {
		t.Fatalf("chunks = %d, want 4", got)
	}
	if !strings.Contains(buf.String(), "Memory leak stopped at 500MB to prevent complete crash") {
		t.Fatalf("log = %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"rss"`) {
		t.Fatalf("log = %s, want memory figures", buf.String())
	}
}

func TestLeakerRunsOneAtATime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Leaker{
		ChunkSize: 1024,
		Interval:  time.Hour,
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
	if !l.Start(ctx) {
		t.Fatal("expected first leak to start")
	}
	if l.Start(ctx) {
		t.Fatal("expected second leak to be refused")
	}
	cancel()
	l.Wait()
	if l.Running() {
		t.Fatal("expected leak to stop on cancellation")
	}
	next, stop := context.WithCancel(context.Background())
	defer func() {
		stop()
		l.Wait()
	}()
	if !l.Start(next) {
		t.Fatal("expected a new leak after the previous one stopped")
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
