package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/logging"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/services/pageviews"
	"github.com/louisbranch/addon-demo/internal/services/shared/summary"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInterval  = 60 * time.Second
	defaultRetention = 30 * 24 * time.Hour

	tracerName = "github.com/louisbranch/addon-demo/internal/services/worker/app"
)

// Job names, also used as metric and span labels.
const (
	JobCleanOldPageViews    = "cleanOldPageViews"
	JobUpdateCacheStats     = "updateCacheStats"
	JobGenerateDailySummary = "generateDailySummary"
)

// PageViewSource is the slice of the page view database the jobs use.
type PageViewSource interface {
	Enabled() bool
	CleanOlderThan(ctx context.Context, age time.Duration) (int64, bool)
	TotalPageViews(ctx context.Context) int64
	TopPages(ctx context.Context, limit int) ([]pageviews.PathStats, bool)
}

// SummaryCache is the slice of the cache the jobs use.
type SummaryCache interface {
	Configured() bool
	Ready(ctx context.Context) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
}

// Config controls the job schedule.
type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Retention <= 0 {
		c.Retention = defaultRetention
	}
	return c
}

type job struct {
	name string
	run  func(context.Context) error
}

// Processor runs the maintenance jobs on a fixed interval.
type Processor struct {
	db      PageViewSource
	cache   SummaryCache
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	running atomic.Bool
}

// New builds a Processor. A nil logger uses slog.Default.
func New(db PageViewSource, cache SummaryCache, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		db:      db,
		cache:   cache,
		cfg:     cfg.normalized(),
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
}

// Run processes jobs immediately, then on every tick until ctx ends.
func (p *Processor) Run(ctx context.Context) error {
	if p == nil {
		return errors.New("processor is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.logger.Info("Worker process starting...", "interval", p.cfg.Interval.String())

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.ProcessJobs(ctx)
	p.logger.Info("Worker process started successfully")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Worker process stopping...")
			return nil
		case <-ticker.C:
			p.ProcessJobs(ctx)
		}
	}
}

// ProcessJobs runs every job once, in order. It returns false without running
// anything when another pass is still in flight.
func (p *Processor) ProcessJobs(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.DebugContext(ctx, "Previous job pass still running, skipping")
		return false
	}
	defer p.running.Store(false)

	p.logger.InfoContext(ctx, "Processing background jobs...")
	failed := 0
	for _, j := range p.jobs() {
		if ctx.Err() != nil {
			return true
		}
		if err := p.runJob(ctx, j); err != nil {
			failed++
		}
	}
	if failed == 0 {
		p.logger.InfoContext(ctx, "Background jobs completed successfully")
	} else {
		p.logger.WarnContext(ctx, "Background jobs completed with errors", "failed", failed)
	}
	return true
}

func (p *Processor) jobs() []job {
	return []job{
		{name: JobCleanOldPageViews, run: p.cleanOldPageViews},
		{name: JobUpdateCacheStats, run: p.updateCacheStats},
		{name: JobGenerateDailySummary, run: p.generateDailySummary},
	}
}

func (p *Processor) runJob(ctx context.Context, j job) error {
	ctx, span := p.tracer.Start(ctx, "worker."+j.name, trace.WithAttributes(attribute.String("worker.job", j.name)))
	defer span.End()

	start := time.Now()
	err := j.run(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "Error running background job", "job", j.name, logging.Err(err))
	}
	p.metrics.JobRun(j.name, outcome, time.Since(start))
	return err
}

func (p *Processor) cleanOldPageViews(ctx context.Context) error {
	if p.db == nil || !p.db.Enabled() {
		p.logger.DebugContext(ctx, "PostgreSQL not configured, skipping page view cleanup")
		return nil
	}
	deleted, ok := p.db.CleanOlderThan(ctx, p.cfg.Retention)
	if !ok {
		return errors.New("clean old page views failed")
	}
	if deleted > 0 {
		p.logger.InfoContext(ctx, fmt.Sprintf("Cleaned %d old page views", deleted), "deleted", deleted)
	}
	return nil
}

func (p *Processor) updateCacheStats(ctx context.Context) error {
	if p.cache == nil || !p.cache.Ready(ctx) {
		p.logger.DebugContext(ctx, "Redis not configured, skipping cache stats update")
		return nil
	}
	total := p.totalViews(ctx)
	if !p.cache.Set(ctx, summary.TotalViewsKey, total, summary.TotalViewsTTL) {
		return fmt.Errorf("write %s failed", summary.TotalViewsKey)
	}
	p.logger.InfoContext(ctx, fmt.Sprintf("Updated cache stats: %d total views", total), "totalViews", total)
	return nil
}

func (p *Processor) generateDailySummary(ctx context.Context) error {
	if p.cache == nil || !p.cache.Configured() {
		p.logger.DebugContext(ctx, "Redis not configured, skipping daily summary")
		return nil
	}
	var top []pageviews.PathStats
	if p.db != nil {
		top, _ = p.db.TopPages(ctx, summary.TopPagesLimit)
	}
	total := p.totalViews(ctx)

	daily := summary.Build(p.now(), total, top)
	if !p.cache.Set(ctx, summary.DailySummaryKey, daily, summary.DailySummaryTTL) {
		return fmt.Errorf("write %s failed", summary.DailySummaryKey)
	}
	p.logger.InfoContext(ctx, "Generated daily summary", "totalViews", total)
	return nil
}

func (p *Processor) totalViews(ctx context.Context) int64 {
	if p.db == nil {
		return 0
	}
	return p.db.TotalPageViews(ctx)
}
