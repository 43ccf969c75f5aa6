package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/config"
	"github.com/louisbranch/addon-demo/internal/platform/logging"
	"github.com/louisbranch/addon-demo/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// Process identifiers used for logging, tracing and CLI naming.
const (
	ServiceWeb         = "web"
	ServiceWorker      = "worker"
	ServiceHealthcheck = "healthcheck"
)

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
	// Logging overrides fields of the derived logging config (tests set Output).
	Logging *logging.Config
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RegisterAddonFlags binds the shared add-on settings to fs so flags override
// the environment.
func RegisterAddonFlags(fs *flag.FlagSet, addons *config.Addons) {
	fs.StringVar(&addons.AppName, "app-name", addons.AppName, "Application name used in logs and traces")
	fs.StringVar(&addons.Environment, "env", addons.Environment, "Deployment environment")
	fs.StringVar(&addons.LogLevel, "log-level", addons.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&addons.LogDrainURL, "log-drain-url", addons.LogDrainURL, "Syslog drain URL (udp:// or tcp://)")
	fs.StringVar(&addons.DatabaseURL, "database-url", addons.DatabaseURL, "Postgres or sqlite:// database URL")
	fs.StringVar(&addons.RedisURL, "redis-url", addons.RedisURL, "Redis URL")
}

// RunWithTelemetry configures logging and tracing, then executes a service run loop.
func RunWithTelemetry(ctx context.Context, service string, addons config.Addons, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, addons, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures logging and tracing, then executes a service run loop.
func RunWithTelemetryAndOptions(ctx context.Context, service string, addons config.Addons, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logCfg := logging.Config{
		Service:     addons.AppName,
		Environment: addons.Environment,
		Process:     service,
		Level:       addons.LogLevel,
		DrainURL:    addons.LogDrainURL,
	}
	if options.Logging != nil {
		logCfg.Output = options.Logging.Output
	}
	closeLogs := logging.Setup(logCfg)
	defer func() {
		if err := closeLogs(); err != nil {
			slog.Warn("close log drain", logging.Err(err))
		}
	}()

	shutdown, err := otel.Setup(ctx, addons.AppName+"-"+service, addons.Environment)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "service", service, logging.Err(err))
		}
	}()
	return run(ctx)
}
