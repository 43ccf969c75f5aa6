package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/config"
	"github.com/louisbranch/addon-demo/internal/platform/discovery"
	"github.com/louisbranch/addon-demo/internal/platform/logging"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/services/cache"
	"github.com/louisbranch/addon-demo/internal/services/pageviews"
	"github.com/louisbranch/addon-demo/internal/services/web/api"
)

// RuntimeConfig controls web process startup.
type RuntimeConfig struct {
	Port   int
	Addons config.Addons
	Logger *slog.Logger
	// Listener overrides Port; tests pass a pre-bound listener.
	Listener net.Listener
}

// Run opens the add-ons, serves HTTP until ctx ends and then releases them.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = discovery.DefaultWebPort
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()
	metrics := observability.NewMetrics()

	httpAddr := discovery.ListenAddr(cfg.Port)
	port := cfg.Port
	if cfg.Listener != nil {
		httpAddr = cfg.Listener.Addr().String()
		port = portOf(cfg.Listener, cfg.Port)
	}

	db := pageviews.Open(ctx, pageviews.Config{
		URL:        cfg.Addons.DatabaseURL,
		RequireTLS: cfg.Addons.IsProduction(),
		Logger:     logger,
		Metrics:    metrics,
	})
	defer func() {
		if !db.Enabled() {
			return
		}
		if err := db.Close(); err != nil {
			logger.Warn("close page view database", logging.Err(err))
			return
		}
		logger.Info("PostgreSQL pool closed")
	}()

	store := cache.New(cache.Config{URL: cfg.Addons.RedisURL, Logger: logger, Metrics: metrics})
	connectCtx, stopConnect := context.WithCancel(ctx)
	connected := make(chan struct{})
	go func() {
		defer close(connected)
		store.Connect(connectCtx)
	}()
	defer func() {
		stopConnect()
		<-connected
		if err := store.Close(); err != nil {
			logger.Warn("close cache", logging.Err(err))
		}
	}()

	server, err := NewServer(ctx, Config{
		HTTPAddr: httpAddr,
		API: api.Config{
			Addons:  cfg.Addons,
			DB:      db,
			Cache:   store,
			Logger:  logger,
			Metrics: metrics,
			Started: started,
		},
	})
	if err != nil {
		if cfg.Listener != nil {
			_ = cfg.Listener.Close()
		}
		return err
	}

	status := cfg.Addons.Status()
	logger.Info(fmt.Sprintf("Server running on port %d", port))
	logger.Info("Environment: " + cfg.Addons.Environment)
	logger.Info("Deployment: " + api.DeploymentMethod)
	logger.Info("Add-ons status:",
		"postgres", status.Postgres,
		"redis", status.Redis,
		"papertrail", status.Papertrail,
		"newrelic", status.NewRelic,
	)

	serve := server.ListenAndServe
	if cfg.Listener != nil {
		serve = func(ctx context.Context) error { return server.Serve(ctx, cfg.Listener) }
	}
	if err := serve(ctx); err != nil {
		return err
	}
	logger.Info("HTTP server closed")
	return nil
}

func portOf(listener net.Listener, fallback int) int {
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return fallback
}
