package procmem

import (
	"context"
	"runtime"
	"testing"
)

func TestReadReportsHeap(t *testing.T) {
	snap := Read(context.Background())
	if snap.HeapUsed == 0 || snap.HeapTotal == 0 {
		t.Fatalf("snapshot = %+v, want heap figures", snap)
	}
	if snap.HeapUsed > snap.HeapTotal {
		t.Fatalf("heap used %d > heap total %d", snap.HeapUsed, snap.HeapTotal)
	}
	if runtime.GOOS == "linux" && snap.RSS == 0 {
		t.Fatal("expected rss on linux")
	}
}

func TestHumanFormatsIEC(t *testing.T) {
	got := Snapshot{HeapUsed: 10 << 20, HeapTotal: 1 << 30, RSS: 512}.Human()
	if got.Used != "10 MiB" {
		t.Fatalf("used = %q, want %q", got.Used, "10 MiB")
	}
	if got.Total != "1.0 GiB" {
		t.Fatalf("total = %q, want %q", got.Total, "1.0 GiB")
	}
	if got.RSS != "512 B" {
		t.Fatalf("rss = %q, want %q", got.RSS, "512 B")
	}
}
