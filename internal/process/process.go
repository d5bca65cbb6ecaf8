package process

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a pid no longer refers to a live process.
var ErrNotFound = errors.New("process not found")

// Record is a point-in-time observation of one OS process.
// ParentName is empty when the parent is unknown or already gone.
type Record struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
}

// Sample holds resource usage for a single pid.
type Sample struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
}

// Source enumerates OS processes and samples them on demand.
// Implementations must be safe for concurrent use.
type Source interface {
	// List returns the current process table.
	List(ctx context.Context) ([]Record, error)
	// Sample returns CPU and memory percentages for pid.
	Sample(ctx context.Context, pid int32) (Sample, error)
	// RaisePriority asks the OS to schedule pid ahead of normal processes.
	RaisePriority(ctx context.Context, pid int32) error
}

// ByName groups the pids of records by process name, preserving list order.
func ByName(recs []Record) map[string][]int32 {
	out := make(map[string][]int32, len(recs))
	for _, r := range recs {
		out[r.Name] = append(out[r.Name], r.PID)
	}
	return out
}
