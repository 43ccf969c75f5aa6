package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/addon-demo/internal/platform/grpc"
	"github.com/louisbranch/addon-demo/internal/platform/logging"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/platform/timeouts"
	"github.com/louisbranch/addon-demo/internal/services/cache"
	"github.com/louisbranch/addon-demo/internal/services/pageviews"
	"golang.org/x/sync/errgroup"
)

// HealthService is the gRPC health service name reported by the worker.
const HealthService = "worker.jobs"

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port        int
	MetricsAddr string
	Interval    time.Duration
	DatabaseURL string
	RedisURL    string
	RequireTLS  bool
	Logger      *slog.Logger
	// Listener overrides Port; tests pass a pre-bound listener.
	Listener net.Listener
}

// Run starts worker runtime dependencies and the background processing loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = discovery.DefaultWorkerPort
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.NewMetrics()

	listener := cfg.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", discovery.ListenAddr(cfg.Port))
		if err != nil {
			return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
		}
	}
	defer listener.Close()

	db := pageviews.Open(ctx, pageviews.Config{
		URL:        cfg.DatabaseURL,
		RequireTLS: cfg.RequireTLS,
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
		logger.Info("PostgreSQL connection closed")
	}()

	store := cache.New(cache.Config{URL: cfg.RedisURL, Logger: logger, Metrics: metrics})
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close cache", logging.Err(err))
		}
	}()

	processor := New(db, store, Config{Interval: cfg.Interval}, logger, metrics)
	healthServer := platformgrpc.NewHealthServer(HealthService)
	if store.Configured() {
		// Jobs wait for the first Redis connect; health reflects that.
		healthServer.SetServing(HealthService, false)
	}

	var metricsServer *http.Server
	if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("worker health server listening", "addr", listener.Addr().String())
		if err := healthServer.Serve(listener); err != nil {
			return fmt.Errorf("serve worker health: %w", err)
		}
		return nil
	})
	if metricsServer != nil {
		group.Go(func() error {
			logger.Info("worker metrics listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve worker metrics: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		if store.Configured() {
			store.Connect(groupCtx)
			if groupCtx.Err() != nil {
				return nil
			}
			healthServer.SetServing(HealthService, true)
		}
		return processor.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		healthServer.Stop()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown worker metrics", logging.Err(err))
			}
		}
		return nil
	})

	err := group.Wait()
	logger.Info("Worker process stopped")
	return err
}
