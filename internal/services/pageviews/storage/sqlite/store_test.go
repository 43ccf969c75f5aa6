package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/addon-demo/internal/services/pageviews/storage"
)

func TestRecordPageViewAssignsID(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2026, 2, 21, 23, 30, 0, 0, time.UTC)

	first, err := store.RecordPageView(context.Background(), storage.PageView{
		Path:      "/",
		UserAgent: "curl/8.0",
		IPAddress: "10.0.0.1",
		Timestamp: now,
	})
	if err != nil {
		t.Fatalf("record page view: %v", err)
	}
	second, err := store.RecordPageView(context.Background(), storage.PageView{Path: "/about", Timestamp: now})
	if err != nil {
		t.Fatalf("record page view second: %v", err)
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("ids = %d, %d, want increasing non-zero", first.ID, second.ID)
	}
	if !first.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v, want %v", first.Timestamp, now)
	}
	if first.UserAgent != "curl/8.0" || first.IPAddress != "10.0.0.1" {
		t.Fatalf("view = %+v", first)
	}
}

func TestRecordPageViewTruncatesPath(t *testing.T) {
	store := openTempStore(t)

	view, err := store.RecordPageView(context.Background(), storage.PageView{Path: "/" + strings.Repeat("x", 400)})
	if err != nil {
		t.Fatalf("record page view: %v", err)
	}
	if len(view.Path) != storage.MaxPathLength {
		t.Fatalf("path len = %d, want %d", len(view.Path), storage.MaxPathLength)
	}
}

func TestRecordPageViewValidation(t *testing.T) {
	store := openTempStore(t)

	if _, err := store.RecordPageView(context.Background(), storage.PageView{}); err == nil {
		t.Fatal("expected validation error for empty path")
	}
}

func TestTopPagesAndTotal(t *testing.T) {
	store := openTempStore(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, path := range []string{"/", "/about", "/", "/docs", "/", "/about"} {
		if _, err := store.RecordPageView(context.Background(), storage.PageView{
			Path:      path,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("record %s: %v", path, err)
		}
	}

	total, err := store.TotalViews(context.Background())
	if err != nil {
		t.Fatalf("total views: %v", err)
	}
	if total != 6 {
		t.Fatalf("total = %d, want 6", total)
	}

	top, err := store.TopPages(context.Background(), 2)
	if err != nil {
		t.Fatalf("top pages: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top len = %d, want 2", len(top))
	}
	if top[0].Path != "/" || top[0].Views != 3 {
		t.Fatalf("top[0] = %+v, want / with 3 views", top[0])
	}
	if top[1].Path != "/about" || top[1].Views != 2 {
		t.Fatalf("top[1] = %+v, want /about with 2 views", top[1])
	}
	if want := base.Add(4 * time.Minute); !top[0].LastView.Equal(want) {
		t.Fatalf("top[0].LastView = %v, want %v", top[0].LastView, want)
	}

	if _, err := store.TopPages(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestDeleteOlderThan(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		if _, err := store.RecordPageView(context.Background(), storage.PageView{
			Path:      "/",
			Timestamp: now.Add(-age),
		}); err != nil {
			t.Fatalf("record page view: %v", err)
		}
	}

	deleted, err := store.DeleteOlderThan(context.Background(), now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	total, err := store.TotalViews(context.Background())
	if err != nil {
		t.Fatalf("total views: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
}

func TestCanceledContext(t *testing.T) {
	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.TotalViews(ctx); err == nil {
		t.Fatal("expected canceled context error")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected path error")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pageviews.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
