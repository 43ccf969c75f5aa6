package api

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/httpx"
	"github.com/louisbranch/addon-demo/internal/services/web/simulate"
)

type timeoutRequest struct {
	Duration int64 `json:"duration"`
}

type logRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (h handlers) handleCrash(w http.ResponseWriter, r *http.Request) {
	h.logger.ErrorContext(r.Context(), "Intentionally crashing app for H10 testing")
	h.cfg.Crasher.Schedule()
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Crash initiated..."})
}

func (h handlers) handleTimeout(w http.ResponseWriter, r *http.Request) {
	var req timeoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		_ = httpx.WriteError(w, err)
		return
	}
	duration := simulate.TimeoutDuration(req.Duration)
	h.logger.WarnContext(r.Context(), fmt.Sprintf("Starting timeout test for %dms", duration.Milliseconds()))

	if err := simulate.Sleep(r.Context(), duration); err != nil {
		h.logger.WarnContext(r.Context(), "Timeout test abandoned by client", "after", duration.String())
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "This response will never be sent due to H12 timeout",
	})
}

func (h handlers) handleMemoryLeak(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Leaker.Start(h.cfg.BaseContext) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Memory leak already running",
			"note":    "Monitor logs for memory usage. Will stop at 500MB to prevent complete crash.",
		})
		return
	}
	h.logger.WarnContext(r.Context(), "Starting memory leak for R14 testing")
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Memory leak started",
		"note":    "Monitor logs for memory usage. Will stop at 500MB to prevent complete crash.",
	})
}

func (h handlers) handleCPUIntensive(w http.ResponseWriter, r *http.Request) {
	h.logger.WarnContext(r.Context(), "Starting CPU intensive task")
	result, elapsed := simulate.Burn(h.cfg.CPUIterations)
	h.logger.WarnContext(r.Context(), fmt.Sprintf("CPU intensive task completed in %dms", elapsed.Milliseconds()))
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "CPU intensive task completed",
		"duration": fmt.Sprintf("%dms", elapsed.Milliseconds()),
		"result":   int64(math.Round(result)),
	})
}

func (h handlers) handleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		_ = httpx.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Level) == "" {
		req.Level = "info"
	}
	if req.Message == "" {
		req.Message = "Test log message"
	}

	level := slog.LevelInfo
	switch req.Level {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "debug":
		level = slog.LevelDebug
	}
	h.logger.Log(r.Context(), level, req.Message, "source", "api", "timestamp", time.Now().UTC())

	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Logged at %s level", req.Level),
		"note":    "Check Papertrail or console for logs",
	})
}
