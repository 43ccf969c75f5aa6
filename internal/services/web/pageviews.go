package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/louisbranch/addon-demo/internal/platform/httpx"
	"github.com/louisbranch/addon-demo/internal/services/pageviews"
)

// PageViewRecorder stores one page view.
type PageViewRecorder interface {
	LogPageView(ctx context.Context, path, userAgent, ip string) *pageviews.PageView
}

// TrackPageViews records every GET to a non-API path before the handler runs.
func TrackPageViews(recorder PageViewRecorder) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tracked(r) {
				recorder.LogPageView(r.Context(), r.URL.Path, r.UserAgent(), httpx.ClientIP(r))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tracked(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	path := r.URL.Path
	return !strings.HasPrefix(path, "/api/") && path != "/metrics"
}
