// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"log/slog"
	"time"

	entrypoint "github.com/louisbranch/addon-demo/internal/platform/cmd"
	"github.com/louisbranch/addon-demo/internal/platform/config"
	workerserver "github.com/louisbranch/addon-demo/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Port        int           `env:"WORKER_PORT" envDefault:"8089"`
	Interval    time.Duration `env:"WORKER_INTERVAL" envDefault:"60s"`
	MetricsAddr string        `env:"WORKER_METRICS_ADDR"`
	Addons      config.Addons
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Background job interval")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Optional Prometheus metrics listen address")
	entrypoint.RegisterAddonFlags(fs, &cfg.Addons)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, cfg.Addons, func(ctx context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Port:        cfg.Port,
			MetricsAddr: cfg.MetricsAddr,
			Interval:    cfg.Interval,
			DatabaseURL: cfg.Addons.DatabaseURL,
			RedisURL:    cfg.Addons.RedisURL,
			RequireTLS:  cfg.Addons.IsProduction(),
			Logger:      slog.Default(),
		})
	})
}
