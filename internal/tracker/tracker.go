package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/loykin/playtrack/internal/catalog"
	"github.com/loykin/playtrack/internal/history"
	"github.com/loykin/playtrack/internal/matcher"
	"github.com/loykin/playtrack/internal/metrics"
	"github.com/loykin/playtrack/internal/process"
	"github.com/loykin/playtrack/internal/store"
)

// ErrAlreadyStarted is returned by Start when the loop was started before.
var ErrAlreadyStarted = errors.New("tracker already started")

// Tracker owns the per-application stats map and the running set.
// Only Cycle mutates them; readers always receive copies.
//
// Playtime is credited per cycle (WithPlaytimeCredit, default 1), not measured:
// with a 60s interval and the default credit a running game gains 1 per minute.
type Tracker struct {
	src     process.Source
	st      store.Store
	matcher *matcher.Matcher
	scanner *catalog.Scanner
	roots   []string

	launchers     map[string]struct{}
	interval      time.Duration
	credit        int64
	sampleTimeout time.Duration
	raisePriority bool
	history       *history.Fanout
	logger        *slog.Logger
	now           func() time.Time

	cycleMu sync.Mutex

	mu      sync.RWMutex
	stats   store.Stats
	running map[string]struct{}

	catMu   sync.RWMutex
	catalog []catalog.Entry
	names   []string

	lifeMu   sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a tracker over src and st. Call Init before the first Cycle.
func New(src process.Source, st store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		src:           src,
		st:            st,
		matcher:       matcher.New(matcher.Config{}),
		scanner:       catalog.NewScanner(),
		interval:      DefaultInterval,
		credit:        DefaultPlaytimeCredit,
		sampleTimeout: DefaultSampleTimeout,
		raisePriority: true,
		logger:        slog.Default(),
		now:           time.Now,
		stats:         store.Stats{},
		running:       map[string]struct{}{},
		stopCh:        make(chan struct{}),
	}
	WithLaunchers(DefaultLaunchers...)(t)
	for _, o := range opts {
		o(t)
	}
	return t
}

// Interval is the cadence used by Start.
func (t *Tracker) Interval() time.Duration { return t.interval }

// Init loads persisted stats and performs the first catalog scan.
// A load failure is logged and the tracker starts from an empty map.
func (t *Tracker) Init(ctx context.Context) {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()

	st, err := t.st.Load(ctx)
	if err != nil {
		t.logger.Warn("stats load failed, starting empty", "error", err)
		st = store.Stats{}
	}
	if st == nil {
		st = store.Stats{}
	}
	t.mu.Lock()
	t.stats = st
	t.mu.Unlock()
	t.publishStats(st, 0)
	t.logger.Info("stats loaded", "apps", len(st))

	t.RescanCatalog()
}

// Cycle runs one pass: launch detection, liveness sweep, priority raise and persist.
// A failed process listing skips straight to persist. The returned error is
// non-nil only when persisting failed.
func (t *Tracker) Cycle(ctx context.Context) error {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()

	start := time.Now()
	defer func() { metrics.ObserveCycleDuration(time.Since(start).Seconds()) }()

	stats, running := t.copyState()
	var events []history.Event

	recs, err := t.src.List(ctx)
	if err != nil {
		metrics.IncCycleError(metrics.StageList)
		t.logger.Warn("process list failed, skipping detection", "error", err)
	} else {
		byName := process.ByName(recs)
		added := make(map[string]struct{})

		for _, r := range recs {
			if _, ok := t.launchers[r.ParentName]; !ok {
				continue
			}
			if _, ok := running[r.Name]; ok {
				continue
			}
			a := stats[r.Name]
			a.Launches++
			t.applySample(ctx, r.Name, r.PID, &a)
			stats[r.Name] = a
			running[r.Name] = struct{}{}
			added[r.Name] = struct{}{}
			metrics.IncLaunch(r.Name)
			events = append(events, t.event(history.EventLaunch, r.Name, r.PID, a))
			t.logger.Info("launch detected", "app", r.Name, "pid", r.PID, "parent", r.ParentName, "launches", a.Launches)
		}

		for name := range running {
			if _, fresh := added[name]; fresh {
				continue
			}
			pids := byName[name]
			if len(pids) == 0 || t.matcher.Excluded(name) {
				delete(running, name)
				a := stats[name]
				events = append(events, t.event(history.EventExit, name, 0, a))
				t.logger.Info("app exited", "app", name, "playtime", a.PlaytimeSeconds)
				continue
			}
			a := stats[name]
			a.PlaytimeSeconds += t.credit
			t.applySample(ctx, name, pids[0], &a)
			stats[name] = a
		}

		if t.raisePriority {
			for name := range stats {
				for _, pid := range byName[name] {
					if err := t.src.RaisePriority(ctx, pid); err != nil {
						t.logger.Debug("raise priority failed", "app", name, "pid", pid, "error", err)
					}
				}
			}
		}
	}

	t.mu.Lock()
	t.stats = stats
	t.running = running
	t.mu.Unlock()
	t.publishStats(stats, len(running))

	if err := t.st.Save(ctx, stats.Clone()); err != nil {
		metrics.IncCycleError(metrics.StageSave)
		t.logger.Error("stats save failed", "apps", len(stats), "error", err)
		t.sendEvents(ctx, events)
		return fmt.Errorf("save stats: %w", err)
	}
	t.sendEvents(ctx, events)
	return nil
}

// applySample overwrites cpu and memory on a from a fresh sample of pid.
// Failures and timeouts leave a untouched.
func (t *Tracker) applySample(ctx context.Context, name string, pid int32, a *store.AppStats) {
	s, err := t.sample(ctx, pid)
	if err != nil {
		metrics.IncCycleError(metrics.StageSample)
		t.logger.Debug("sample skipped", "app", name, "pid", pid, "error", err)
		return
	}
	a.CPUPercent = s.CPUPercent
	a.MemPercent = s.MemPercent
}

type sampleResult struct {
	s   process.Sample
	err error
}

func (t *Tracker) sample(ctx context.Context, pid int32) (process.Sample, error) {
	sctx, cancel := context.WithTimeout(ctx, t.sampleTimeout)
	defer cancel()
	ch := make(chan sampleResult, 1)
	go func() {
		s, err := t.src.Sample(sctx, pid)
		ch <- sampleResult{s: s, err: err}
	}()
	select {
	case r := <-ch:
		return r.s, r.err
	case <-sctx.Done():
		return process.Sample{}, sctx.Err()
	}
}

func (t *Tracker) event(typ history.EventType, app string, pid int32, a store.AppStats) history.Event {
	return history.Event{
		Type:            typ,
		OccurredAt:      t.now().UTC(),
		App:             app,
		PID:             pid,
		PlaytimeSeconds: a.PlaytimeSeconds,
		Launches:        a.Launches,
		CPUPercent:      a.CPUPercent,
		MemPercent:      a.MemPercent,
	}
}

func (t *Tracker) sendEvents(ctx context.Context, events []history.Event) {
	if t.history.Len() == 0 {
		return
	}
	for _, e := range events {
		t.history.Send(ctx, e)
	}
}

func (t *Tracker) publishStats(stats store.Stats, running int) {
	for name, a := range stats {
		metrics.SetAppStats(name, a.PlaytimeSeconds, a.CPUPercent, a.MemPercent)
	}
	metrics.SetRunningApps(running)
}

func (t *Tracker) copyState() (store.Stats, map[string]struct{}) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	running := make(map[string]struct{}, len(t.running))
	for k := range t.running {
		running[k] = struct{}{}
	}
	return t.stats.Clone(), running
}

// Start runs Cycle immediately and then once per interval until Stop or ctx ends.
// An in-flight cycle always runs to completion.
func (t *Tracker) Start(ctx context.Context) error {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()
	if t.started {
		return ErrAlreadyStarted
	}
	t.started = true

	cycleCtx := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		_ = t.Cycle(cycleCtx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			case <-ticker.C:
				_ = t.Cycle(cycleCtx)
			}
		}
	}()
	return nil
}

// Stop ends the loop started by Start and waits for it. Safe to call repeatedly.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	t.wg.Wait()
}

// Snapshot returns a copy of the whole stats map taken under one lock.
func (t *Tracker) Snapshot() store.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats.Clone()
}

// Stats returns the entry for one executable name.
func (t *Tracker) Stats(name string) (store.AppStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.stats[name]
	return a, ok
}

// Running returns the running set as a sorted slice.
func (t *Tracker) Running() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.running))
	for k := range t.running {
		out = append(out, k)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Catalog returns the entries from the last scan.
func (t *Tracker) Catalog() []catalog.Entry {
	t.catMu.RLock()
	defer t.catMu.RUnlock()
	return append([]catalog.Entry(nil), t.catalog...)
}

// RescanCatalog scans the roots again and replaces the cached catalog.
func (t *Tracker) RescanCatalog() []catalog.Entry {
	entries := t.scanner.Scan(t.roots)
	names := catalog.Names(entries)
	t.catMu.Lock()
	t.catalog = entries
	t.names = names
	t.catMu.Unlock()
	metrics.SetCatalogEntries(len(entries))
	t.logger.Debug("catalog scanned", "roots", len(t.roots), "entries", len(entries))
	return append([]catalog.Entry(nil), entries...)
}

// RunningApplications lists live processes whose names match the catalog,
// in enumeration order without duplicates. It never touches tracker state.
func (t *Tracker) RunningApplications(ctx context.Context) ([]string, error) {
	recs, err := t.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	t.catMu.RLock()
	names := t.names
	t.catMu.RUnlock()

	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range recs {
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}
		if t.matcher.IsTracked(r.Name, names) {
			out = append(out, r.Name)
		}
	}
	return out, nil
}
