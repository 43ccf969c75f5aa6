// Package web parses web command flags and launches the HTTP runtime.
package web

import (
	"context"
	"flag"
	"log/slog"

	entrypoint "github.com/louisbranch/addon-demo/internal/platform/cmd"
	"github.com/louisbranch/addon-demo/internal/platform/config"
	"github.com/louisbranch/addon-demo/internal/services/web"
)

// Config holds the web command configuration.
type Config struct {
	Port   int `env:"PORT" envDefault:"3000"`
	Addons config.Addons
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The HTTP listen port")
	entrypoint.RegisterAddonFlags(fs, &cfg.Addons)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the web runtime with logging and tracing installed.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, cfg.Addons, func(ctx context.Context) error {
		return web.Run(ctx, web.RuntimeConfig{
			Port:   cfg.Port,
			Addons: cfg.Addons,
			Logger: slog.Default(),
		})
	})
}
