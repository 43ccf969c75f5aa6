// Package pageviews records page views and serves the aggregate queries the
// web and worker processes need. Every operation degrades to a zero value
// when the database is not configured or failing.
package pageviews

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/logging"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/platform/timeouts"
	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage"
	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage/postgres"
	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage/sqlite"
)

// StatsLimit is the number of paths returned by PageViewStats.
const StatsLimit = 10

type (
	PageView  = storage.PageView
	PathStats = storage.PathStats
)

// Config selects and configures the backing store.
type Config struct {
	// URL is a postgres URL, a keyword DSN, or sqlite://path / file:path.
	URL string
	// RequireTLS applies sslmode=require to Postgres URLs without a mode.
	RequireTLS bool
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// DB wraps a page view store. A DB without a store is disabled.
type DB struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open connects the configured backend. Connection failures are logged and
// yield a disabled DB so the process keeps serving.
func Open(ctx context.Context, cfg Config) *DB {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rawURL := strings.TrimSpace(cfg.URL)
	if rawURL == "" {
		logger.Warn("DATABASE_URL not set - PostgreSQL features disabled")
		return New(nil, logger, cfg.Metrics)
	}

	openCtx, cancel := context.WithTimeout(ctx, timeouts.DatabaseConnect)
	defer cancel()
	store, backend, err := openStore(openCtx, rawURL, cfg.RequireTLS)
	if err != nil {
		logger.Error("Error initializing database schema", "backend", backend, logging.Err(err))
		return New(nil, logger, cfg.Metrics)
	}
	logger.Info("Database schema initialized", "backend", backend)
	return New(store, logger, cfg.Metrics)
}

// New wraps an already opened store.
func New(store storage.Store, logger *slog.Logger, metrics *observability.Metrics) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{store: store, logger: logger, metrics: metrics}
}

func openStore(ctx context.Context, rawURL string, requireTLS bool) (storage.Store, string, error) {
	if path, ok := sqlitePath(rawURL); ok {
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, "sqlite", fmt.Errorf("open sqlite store: %w", err)
		}
		return store, "sqlite", nil
	}
	store, err := postgres.Open(ctx, postgres.Options{URL: rawURL, RequireTLS: requireTLS})
	if err != nil {
		return nil, "postgres", fmt.Errorf("open postgres store: %w", err)
	}
	return store, "postgres", nil
}

func sqlitePath(rawURL string) (string, bool) {
	var path string
	switch {
	case strings.HasPrefix(rawURL, "sqlite://"):
		path = strings.TrimPrefix(rawURL, "sqlite://")
	case strings.HasPrefix(rawURL, "file:"):
		path = strings.TrimPrefix(rawURL, "file:")
	default:
		return "", false
	}
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	return path, true
}

// Enabled reports whether a store is attached.
func (db *DB) Enabled() bool {
	return db != nil && db.store != nil
}

// LogPageView records one view. It returns nil when disabled or failing.
func (db *DB) LogPageView(ctx context.Context, path, userAgent, ip string) *PageView {
	if !db.Enabled() {
		return nil
	}
	view, err := db.store.RecordPageView(ctx, storage.PageView{
		Path:      path,
		UserAgent: userAgent,
		IPAddress: ip,
	})
	if err != nil {
		db.metrics.PageView("error")
		db.logger.ErrorContext(ctx, "Error logging page view", "path", path, logging.Err(err))
		return nil
	}
	db.metrics.PageView("recorded")
	return &view
}

// PageViewStats returns the top paths by views. ok is false when disabled
// or failing.
func (db *DB) PageViewStats(ctx context.Context) ([]PathStats, bool) {
	return db.TopPages(ctx, StatsLimit)
}

// TopPages returns up to limit paths by views.
func (db *DB) TopPages(ctx context.Context, limit int) ([]PathStats, bool) {
	if !db.Enabled() {
		return nil, false
	}
	stats, err := db.store.TopPages(ctx, limit)
	if err != nil {
		db.logger.ErrorContext(ctx, "Error getting page view stats", logging.Err(err))
		return nil, false
	}
	return stats, true
}

// TotalPageViews counts every view, or 0 when disabled or failing.
func (db *DB) TotalPageViews(ctx context.Context) int64 {
	if !db.Enabled() {
		return 0
	}
	total, err := db.store.TotalViews(ctx)
	if err != nil {
		db.logger.ErrorContext(ctx, "Error getting total page views", logging.Err(err))
		return 0
	}
	return total
}

// CleanOlderThan deletes views older than age and returns the count.
func (db *DB) CleanOlderThan(ctx context.Context, age time.Duration) (int64, bool) {
	if !db.Enabled() {
		return 0, false
	}
	deleted, err := db.store.DeleteOlderThan(ctx, time.Now().Add(-age))
	if err != nil {
		db.logger.ErrorContext(ctx, "Error cleaning old page views", logging.Err(err))
		return 0, false
	}
	return deleted, true
}

// Close releases the store.
func (db *DB) Close() error {
	if !db.Enabled() {
		return nil
	}
	return db.store.Close()
}
