// Package storage defines persistence contracts for page view records.
package storage

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Column limits shared by every backend.
const (
	MaxPathLength      = 255
	MaxIPAddressLength = 45
)

// PageView is one recorded GET request to a non-API path.
type PageView struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
}

// PathStats aggregates views for one path.
type PathStats struct {
	Path     string    `json:"path"`
	Views    int64     `json:"views"`
	LastView time.Time `json:"last_view"`
}

// Store persists page views and answers the aggregate queries.
type Store interface {
	RecordPageView(ctx context.Context, view PageView) (PageView, error)
	TopPages(ctx context.Context, limit int) ([]PathStats, error)
	TotalViews(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Normalize trims a view to the column limits and stamps a missing timestamp.
func Normalize(view PageView, now time.Time) PageView {
	view.Path = truncate(view.Path, MaxPathLength)
	view.IPAddress = truncate(view.IPAddress, MaxIPAddressLength)
	if view.Timestamp.IsZero() {
		view.Timestamp = now
	}
	view.Timestamp = view.Timestamp.UTC()
	return view
}

// truncate keeps at most limit characters. Invalid UTF-8 is replaced first
// since Postgres rejects it.
func truncate(value string, limit int) string {
	value = strings.ToValidUTF8(value, "\uFFFD")
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}
