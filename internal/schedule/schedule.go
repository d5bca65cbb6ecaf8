package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a function run on a fixed period.
// Schedule accepts "@every <duration>" or a bare duration such as "10m".
// Singleton jobs skip a tick while the previous run is still active.
//
// Name must be unique across jobs inside the same Scheduler.
type Job struct {
	Name      string
	Schedule  string
	Singleton bool
	// Immediate runs the job once right after Start, before the first tick.
	Immediate bool
	Run       func(ctx context.Context)

	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
}

// Runs reports how many times the job has been invoked.
func (j *Job) Runs() int64 { return j.runs.Load() }

// Skipped reports how many ticks were dropped because a singleton run was still active.
func (j *Job) Skipped() int64 { return j.skipped.Load() }

// ParseEvery parses "@every <duration>" or a bare Go duration.
func ParseEvery(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	durStr := expr
	if strings.HasPrefix(expr, "@") {
		if !strings.HasPrefix(expr, "@every ") {
			return 0, fmt.Errorf("unsupported schedule: %s (only @every <duration> supported)", expr)
		}
		durStr = strings.TrimSpace(strings.TrimPrefix(expr, "@every "))
	}
	d, err := time.ParseDuration(durStr)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule duration %q: %w", expr, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("schedule duration must be > 0, got %s", d)
	}
	return d, nil
}

func (j *Job) validate() (time.Duration, error) {
	if j.Name == "" {
		return 0, errors.New("job requires a name")
	}
	if j.Schedule == "" {
		return 0, fmt.Errorf("job %s requires a schedule", j.Name)
	}
	if j.Run == nil {
		return 0, fmt.Errorf("job %s requires a run function", j.Name)
	}
	d, err := ParseEvery(j.Schedule)
	if err != nil {
		return 0, fmt.Errorf("job %s: %w", j.Name, err)
	}
	return d, nil
}

type entry struct {
	job    *Job
	period time.Duration
}

// Scheduler ticks jobs until Stop is called or the Start context ends.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	jobs    []entry
	names   map[string]struct{}
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger, names: map[string]struct{}{}}
}

// Add validates and registers a job. Jobs cannot be added after Start.
func (s *Scheduler) Add(job *Job) error {
	d, err := job.validate()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	if _, dup := s.names[job.Name]; dup {
		return fmt.Errorf("duplicate job name %s", job.Name)
	}
	s.names[job.Name] = struct{}{}
	s.jobs = append(s.jobs, entry{job: job, period: d})
	return nil
}

// Start launches one loop per job. Runs receive a context canceled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, e)
	}
	s.logger.Debug("scheduler started", "jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, e entry) {
	defer s.wg.Done()
	t := time.NewTicker(e.period)
	defer t.Stop()
	if e.job.Immediate {
		s.fire(ctx, e.job)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.fire(ctx, e.job)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, j *Job) {
	if j.Singleton {
		if !j.running.CompareAndSwap(false, true) {
			j.skipped.Add(1)
			s.logger.Debug("job still running, tick skipped", "job", j.Name)
			return
		}
	} else {
		j.running.Store(true)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer j.running.Store(false)
		j.runs.Add(1)
		j.Run(ctx)
	}()
}

// Stop cancels all loops and waits for in-flight runs. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}
