package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/addon-demo/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage"
	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed page view persistence.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a page view SQLite store and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordPageView inserts one view and returns it with its assigned id.
func (s *Store) RecordPageView(ctx context.Context, view storage.PageView) (storage.PageView, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PageView{}, err
	}
	if strings.TrimSpace(view.Path) == "" {
		return storage.PageView{}, fmt.Errorf("path is required")
	}
	view = storage.Normalize(view, s.now())

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO page_views (path, user_agent, ip_address, timestamp)
VALUES (?, ?, ?, ?)
`,
		view.Path,
		view.UserAgent,
		view.IPAddress,
		view.Timestamp.UnixMilli(),
	)
	if err != nil {
		return storage.PageView{}, fmt.Errorf("record page view: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.PageView{}, fmt.Errorf("read page view id: %w", err)
	}
	view.ID = id
	view.Timestamp = time.UnixMilli(view.Timestamp.UnixMilli()).UTC()
	return view, nil
}

// TopPages lists the most viewed paths, most views first.
func (s *Store) TopPages(ctx context.Context, limit int) ([]storage.PathStats, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT path, COUNT(*) AS views, MAX(timestamp) AS last_view
FROM page_views
GROUP BY path
ORDER BY views DESC, last_view DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()

	stats := make([]storage.PathStats, 0, limit)
	for rows.Next() {
		var entry storage.PathStats
		var lastView int64
		if err := rows.Scan(&entry.Path, &entry.Views, &lastView); err != nil {
			return nil, fmt.Errorf("scan top page: %w", err)
		}
		entry.LastView = time.UnixMilli(lastView).UTC()
		stats = append(stats, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top pages: %w", err)
	}
	return stats, nil
}

// TotalViews counts every stored view.
func (s *Store) TotalViews(ctx context.Context) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var total int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM page_views").Scan(&total); err != nil {
		return 0, fmt.Errorf("total views: %w", err)
	}
	return total, nil
}

// DeleteOlderThan removes views stamped before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM page_views WHERE timestamp < ?", cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete old page views: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted page views: %w", err)
	}
	return deleted, nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
