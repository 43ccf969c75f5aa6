package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/louisbranch/addon-demo/internal/platform/requestctx"
)

func TestRequestLoggerLogsMethodAndPath(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	req = req.WithContext(requestctx.WithRequestID(req.Context(), "req-123"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	want := map[string]any{
		"msg":        "HTTP Request",
		"method":     "GET",
		"path":       "/api/stats",
		"status":     float64(204),
		"userAgent":  "curl/8.0",
		"request_id": "req-123",
	}
	for key, value := range want {
		if record[key] != value {
			t.Fatalf("record[%q] = %v, want %v", key, record[key], value)
		}
	}
	if duration, _ := record["duration"].(string); !strings.HasSuffix(duration, "ms") {
		t.Fatalf("duration = %v, want ms suffix", record["duration"])
	}
}

func TestRequestLoggerCapturesImplicitStatusOKAndBytes(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buffer, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	logLine := buffer.String()
	for _, marker := range []string{"method=GET", "path=/api/health", "status=200", "bytes=2", "latency="} {
		if !strings.Contains(logLine, marker) {
			t.Fatalf("log line missing marker %q: %q", marker, logLine)
		}
	}
}

func TestMetricsMiddlewareLabelsRoutePattern(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := m.Middleware(mux)

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /api/health", "200")); got != 2 {
		t.Fatalf("health requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched requests = %v, want 1", got)
	}
}

func TestMetricsRecorders(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.PageView("recorded")
	m.CacheOp("get", "hit")
	m.CacheOp("get", "hit")
	m.JobRun("cleanOldPageViews", "ok", 10*time.Millisecond)
	m.SetLeakedChunks(7)

	if got := testutil.ToFloat64(m.pageViews.WithLabelValues("recorded")); got != 1 {
		t.Fatalf("page views = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheOps.WithLabelValues("get", "hit")); got != 2 {
		t.Fatalf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("cleanOldPageViews", "ok")); got != 1 {
		t.Fatalf("job runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.leakedChunks); got != 7 {
		t.Fatalf("leaked chunks = %v, want 7", got)
	}
}

func TestMetricsHandlerServesExposition(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.PageView("recorded")
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "addon_demo_page_views_total") {
		t.Fatalf("exposition missing page view counter")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.PageView("recorded")
	m.CacheOp("get", "miss")
	m.JobRun("x", "ok", time.Second)
	m.SetLeakedChunks(1)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rr := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want passthrough", rr.Code)
	}
}
