// Package postgres stores page views in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS page_views (
    id SERIAL PRIMARY KEY,
    path VARCHAR(255) NOT NULL,
    user_agent TEXT,
    ip_address VARCHAR(45),
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Options configures a Postgres store.
type Options struct {
	URL string
	// RequireTLS forces sslmode=require when the URL does not choose a mode.
	RequireTLS bool
	MaxConns   int32
}

// Store provides Postgres-backed page view persistence.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects a pool, verifies it and creates the page_views table.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	connString, err := ConnString(opts.URL, opts.RequireTLS)
	if err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create page_views table: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// ConnString applies the TLS policy to a database URL or keyword DSN.
func ConnString(raw string, requireTLS bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if !requireTLS {
		return raw, nil
	}
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		query := parsed.Query()
		if query.Get("sslmode") != "" {
			return raw, nil
		}
		query.Set("sslmode", "require")
		parsed.RawQuery = query.Encode()
		return parsed.String(), nil
	}
	if strings.Contains(raw, "sslmode=") {
		return raw, nil
	}
	return raw + " sslmode=require", nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// RecordPageView inserts one view and returns it with its assigned id.
func (s *Store) RecordPageView(ctx context.Context, view storage.PageView) (storage.PageView, error) {
	if s == nil || s.pool == nil {
		return storage.PageView{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(view.Path) == "" {
		return storage.PageView{}, fmt.Errorf("path is required")
	}
	view = storage.Normalize(view, s.now())

	err := s.pool.QueryRow(ctx, `
INSERT INTO page_views (path, user_agent, ip_address, timestamp)
VALUES ($1, $2, $3, $4)
RETURNING id, timestamp
`,
		view.Path,
		view.UserAgent,
		view.IPAddress,
		view.Timestamp,
	).Scan(&view.ID, &view.Timestamp)
	if err != nil {
		return storage.PageView{}, fmt.Errorf("record page view: %w", err)
	}
	view.Timestamp = view.Timestamp.UTC()
	return view, nil
}

// TopPages lists the most viewed paths, most views first.
func (s *Store) TopPages(ctx context.Context, limit int) ([]storage.PathStats, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.pool.Query(ctx, `
SELECT path, COUNT(*) AS views, MAX(timestamp) AS last_view
FROM page_views
GROUP BY path
ORDER BY views DESC, last_view DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()

	stats := make([]storage.PathStats, 0, limit)
	for rows.Next() {
		var entry storage.PathStats
		if err := rows.Scan(&entry.Path, &entry.Views, &entry.LastView); err != nil {
			return nil, fmt.Errorf("scan top page: %w", err)
		}
		entry.LastView = entry.LastView.UTC()
		stats = append(stats, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top pages: %w", err)
	}
	return stats, nil
}

// TotalViews counts every stored view.
func (s *Store) TotalViews(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM page_views").Scan(&total); err != nil {
		return 0, fmt.Errorf("total views: %w", err)
	}
	return total, nil
}

// DeleteOlderThan removes views stamped before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM page_views WHERE timestamp < $1", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old page views: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ storage.Store = (*Store)(nil)
