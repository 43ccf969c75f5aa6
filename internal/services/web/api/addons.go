package api

import (
	"net/http"

	apperrors "github.com/louisbranch/addon-demo/internal/platform/errors"
	"github.com/louisbranch/addon-demo/internal/platform/httpx"
	"github.com/louisbranch/addon-demo/internal/services/pageviews"
	"github.com/louisbranch/addon-demo/internal/services/shared/summary"
)

type statsResponse struct {
	Message  string                `json:"message,omitempty"`
	Total    int64                 `json:"total"`
	TopPages []pageviews.PathStats `json:"topPages"`
}

type cacheTestResponse struct {
	Message string `json:"message"`
	Counter int64  `json:"counter"`
	Cached  bool   `json:"cached"`
}

func (h handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.cfg.DB.Enabled() {
		_ = httpx.WriteJSON(w, http.StatusOK, statsResponse{
			Message:  "PostgreSQL not configured",
			TopPages: []pageviews.PathStats{},
		})
		return
	}
	stats, ok := h.cfg.DB.PageViewStats(ctx)
	if !ok {
		_ = httpx.WriteError(w, apperrors.New(apperrors.CodeStatsUnavailable, "Failed to fetch statistics"))
		return
	}
	total := h.cfg.DB.TotalPageViews(ctx)
	h.logger.InfoContext(ctx, "Page view stats requested", "total", total)
	if stats == nil {
		stats = []pageviews.PathStats{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, statsResponse{Total: total, TopPages: stats})
}

func (h handlers) handleCacheTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var counter int64
	if h.cfg.Cache.Get(ctx, summary.TestCounterKey, &counter) {
		counter++
		h.logger.InfoContext(ctx, "Cache hit - incremented counter", "counter", counter)
	} else {
		counter = 1
		h.logger.InfoContext(ctx, "Cache miss - initialized counter")
	}
	if !h.cfg.Cache.Set(ctx, summary.TestCounterKey, counter, summary.TestCounterTTL) && h.cfg.Cache.Configured() {
		_ = httpx.WriteError(w, apperrors.New(apperrors.CodeCacheUnavailable, "Cache test failed"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, cacheTestResponse{
		Message: "Redis cache working",
		Counter: counter,
		Cached:  counter > 1,
	})
}

func (h handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var daily summary.Summary
	if !h.cfg.Cache.Get(ctx, summary.DailySummaryKey, &daily) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "No summary available yet",
			"note":    "Worker process generates summary every 60 seconds",
		})
		return
	}
	h.logger.InfoContext(ctx, "Daily summary requested")
	_ = httpx.WriteJSON(w, http.StatusOK, daily)
}
