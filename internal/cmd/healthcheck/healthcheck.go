// Package healthcheck checks the web and worker processes for container
// health checks.
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/addon-demo/internal/platform/cmd"
	"github.com/louisbranch/addon-demo/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/addon-demo/internal/platform/grpc"
	"github.com/louisbranch/addon-demo/internal/platform/timeouts"
	workerserver "github.com/louisbranch/addon-demo/internal/services/worker/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Check targets.
const (
	TargetWeb    = "web"
	TargetWorker = "worker"
	TargetAll    = "all"
)

// Config holds healthcheck command configuration.
type Config struct {
	Target     string        `env:"HEALTHCHECK_TARGET" envDefault:"web"`
	WebURL     string        `env:"HEALTHCHECK_WEB_URL"`
	WorkerAddr string        `env:"HEALTHCHECK_WORKER_ADDR"`
	Port       int           `env:"PORT"`
	WorkerPort int           `env:"WORKER_PORT"`
	Timeout    time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"3s"`
	Wait       time.Duration `env:"HEALTHCHECK_WAIT"`
}

// ParseConfig parses environment and flags into a Config. Unset addresses
// fall back to the local process ports.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.WebURL == "" && cfg.Port > 0 {
		cfg.WebURL = "127.0.0.1:" + strconv.Itoa(cfg.Port)
	}
	if cfg.WorkerAddr == "" && cfg.WorkerPort > 0 {
		cfg.WorkerAddr = "127.0.0.1:" + strconv.Itoa(cfg.WorkerPort)
	}
	cfg.WebURL = discovery.OrDefaultHTTPBaseURL(cfg.WebURL, discovery.ServiceWeb)
	cfg.WorkerAddr = discovery.OrDefaultGRPCAddr(cfg.WorkerAddr, discovery.ServiceWorker)
	fs.StringVar(&cfg.Target, "target", cfg.Target, "Process to check (web, worker, all)")
	fs.StringVar(&cfg.WebURL, "web-url", cfg.WebURL, "Web process base URL")
	fs.StringVar(&cfg.WorkerAddr, "worker-addr", cfg.WorkerAddr, "Worker gRPC health address")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-check timeout")
	fs.DurationVar(&cfg.Wait, "wait", cfg.Wait, "Wait up to this long for the worker to report SERVING")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Target = strings.ToLower(strings.TrimSpace(cfg.Target))
	switch cfg.Target {
	case TargetWeb, TargetWorker, TargetAll:
	default:
		return Config{}, fmt.Errorf("unknown target %q", cfg.Target)
	}
	return cfg, nil
}

// Run checks the configured targets and reports every failure.
func Run(ctx context.Context, cfg Config) error {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.HealthCheck
	}
	var errs []error
	if cfg.Target == TargetWeb || cfg.Target == TargetAll {
		if err := CheckWeb(ctx, cfg.WebURL, timeout); err != nil {
			errs = append(errs, fmt.Errorf("web: %w", err))
		}
	}
	if cfg.Target == TargetWorker || cfg.Target == TargetAll {
		check := CheckWorker
		if cfg.Wait > 0 {
			timeout = cfg.Wait
			check = WaitForWorker
		}
		if err := check(ctx, cfg.WorkerAddr, timeout); err != nil {
			errs = append(errs, fmt.Errorf("worker: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CheckWeb requires GET /api/health to answer 200 with status "healthy".
func CheckWeb(ctx context.Context, baseURL string, timeout time.Duration) error {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return errors.New("web url is required")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("reported status %q", body.Status)
	}
	return nil
}

// CheckWorker requires the worker health service to report SERVING.
func CheckWorker(ctx context.Context, addr string, timeout time.Duration) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("worker address is required")
	}
	conn, err := platformgrpc.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	status, err := platformgrpc.Check(ctx, conn, workerserver.HealthService)
	if err != nil {
		return fmt.Errorf("check health: %w", err)
	}
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("reported status %s", status)
	}
	return nil
}

// WaitForWorker polls the worker health service until it reports SERVING
// or wait elapses.
func WaitForWorker(ctx context.Context, addr string, wait time.Duration) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("worker address is required")
	}
	conn, err := platformgrpc.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return platformgrpc.WaitForHealth(ctx, conn, workerserver.HealthService, nil)
}
