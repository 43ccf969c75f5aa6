// Package api serves the JSON endpoints of the web process.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/config"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/services/cache"
	"github.com/louisbranch/addon-demo/internal/services/pageviews"
	"github.com/louisbranch/addon-demo/internal/services/web/simulate"
)

// Version is reported by /api/info.
const Version = "1.0.0"

// DeploymentMethod is reported by /api/info.
const DeploymentMethod = "GitHub Integration"

// Config wires handler dependencies. DB and Cache may be disabled.
type Config struct {
	Addons  config.Addons
	DB      *pageviews.DB
	Cache   *cache.Cache
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Started time.Time
	// BaseContext outlives requests; background simulations are bound to it.
	BaseContext context.Context
	Crasher     *simulate.Crasher
	Leaker      *simulate.Leaker
	// CPUIterations overrides simulate.CPUIterations.
	CPUIterations int
}

type handlers struct {
	cfg    Config
	logger *slog.Logger
}

// Register mounts every endpoint on mux.
func Register(mux *http.ServeMux, cfg Config) {
	if mux == nil {
		return
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = &cache.Cache{}
	}
	if cfg.Started.IsZero() {
		cfg.Started = time.Now()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.Crasher == nil {
		cfg.Crasher = &simulate.Crasher{Logger: cfg.Logger}
	}
	if cfg.Leaker == nil {
		cfg.Leaker = &simulate.Leaker{Logger: cfg.Logger, Metrics: cfg.Metrics}
	}
	if cfg.CPUIterations <= 0 {
		cfg.CPUIterations = simulate.CPUIterations
	}
	h := handlers{cfg: cfg, logger: cfg.Logger}

	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/info", h.handleInfo)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /api/cache/test", h.handleCacheTest)
	mux.HandleFunc("GET /api/summary", h.handleSummary)
	mux.HandleFunc("POST /api/crash", h.handleCrash)
	mux.HandleFunc("POST /api/timeout", h.handleTimeout)
	mux.HandleFunc("POST /api/memory-leak", h.handleMemoryLeak)
	mux.HandleFunc("POST /api/cpu-intensive", h.handleCPUIntensive)
	mux.HandleFunc("POST /api/log", h.handleLog)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	mux.HandleFunc("/", h.handleNotFound)
}
