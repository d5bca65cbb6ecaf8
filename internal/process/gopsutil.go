package process

import (
	"context"
	"fmt"
	"log/slog"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// GopsutilSource reads the process table through gopsutil.
type GopsutilSource struct {
	logger *slog.Logger
}

func NewGopsutilSource(logger *slog.Logger) *GopsutilSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GopsutilSource{logger: logger}
}

// List enumerates processes and resolves each parent's name from the same
// snapshot. Processes that vanish or deny access while being read are skipped.
func (s *GopsutilSource) List(ctx context.Context) ([]Record, error) {
	procs, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	type entry struct {
		rec  Record
		ppid int32
	}
	entries := make([]entry, 0, len(procs))
	names := make(map[int32]string, len(procs))
	skipped := 0
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			skipped++
			continue
		}
		names[p.Pid] = name
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			ppid = 0
		}
		entries = append(entries, entry{rec: Record{PID: p.Pid, Name: name}, ppid: ppid})
	}
	if skipped > 0 {
		s.logger.Debug("process snapshot skipped processes", "skipped", skipped, "total", len(procs))
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.ppid > 0 {
			e.rec.ParentName = names[e.ppid]
		}
		out = append(out, e.rec)
	}
	return out, nil
}

func (s *GopsutilSource) Sample(ctx context.Context, pid int32) (Sample, error) {
	p, err := gopsproc.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Sample{}, fmt.Errorf("pid %d: %w", pid, ErrNotFound)
	}
	cpu, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("cpu percent for pid %d: %w", pid, err)
	}
	mem, err := p.MemoryPercentWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("memory percent for pid %d: %w", pid, err)
	}
	return Sample{CPUPercent: cpu, MemPercent: float64(mem)}, nil
}

func (s *GopsutilSource) RaisePriority(ctx context.Context, pid int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pid <= 0 {
		return fmt.Errorf("pid %d: %w", pid, ErrNotFound)
	}
	return raisePriority(pid)
}
