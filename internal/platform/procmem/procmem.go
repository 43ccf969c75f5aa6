// Package procmem reports process memory for diagnostics endpoints and logs.
package procmem

import (
	"context"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is a point-in-time view of process memory, in bytes.
type Snapshot struct {
	HeapUsed  uint64
	HeapTotal uint64
	// RSS is zero when the platform does not expose resident set size.
	RSS uint64
}

// Read samples the Go heap and the resident set size of this process.
func Read(ctx context.Context) Snapshot {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	snap := Snapshot{
		HeapUsed:  stats.HeapAlloc,
		HeapTotal: stats.HeapSys,
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return snap
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return snap
	}
	snap.RSS = info.RSS
	return snap
}

// Human is a Snapshot formatted for people.
type Human struct {
	Used  string `json:"used"`
	Total string `json:"total"`
	RSS   string `json:"rss"`
}

// Human formats the snapshot with IEC units.
func (s Snapshot) Human() Human {
	return Human{
		Used:  humanize.IBytes(s.HeapUsed),
		Total: humanize.IBytes(s.HeapTotal),
		RSS:   humanize.IBytes(s.RSS),
	}
}
