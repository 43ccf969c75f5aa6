// Package summary holds the cache keys and payloads the worker writes and
// the web process reads.
package summary

import (
	"time"

	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage"
)

// Cache keys and TTLs.
const (
	DailySummaryKey = "daily:summary"
	DailySummaryTTL = 24 * time.Hour

	TotalViewsKey = "stats:total_views"
	TotalViewsTTL = time.Hour

	TestCounterKey = "test:counter"
	TestCounterTTL = 5 * time.Minute
)

// GeneratedBy marks summaries written by the worker process.
const GeneratedBy = "worker-process"

// TopPagesLimit caps the top pages embedded in a summary.
const TopPagesLimit = 5

// Summary is the cached daily aggregate.
type Summary struct {
	Timestamp   time.Time           `json:"timestamp"`
	TotalViews  int64               `json:"totalViews"`
	TopPages    []storage.PathStats `json:"topPages"`
	GeneratedBy string              `json:"generatedBy"`
}

// Build assembles a summary, keeping at most TopPagesLimit pages.
func Build(now time.Time, total int64, top []storage.PathStats) Summary {
	if len(top) > TopPagesLimit {
		top = top[:TopPagesLimit]
	}
	if top == nil {
		top = []storage.PathStats{}
	}
	return Summary{
		Timestamp:   now.UTC(),
		TotalViews:  total,
		TopPages:    top,
		GeneratedBy: GeneratedBy,
	}
}
