package playtrack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/playtrack/internal/catalog"
	cfg "github.com/loykin/playtrack/internal/config"
	"github.com/loykin/playtrack/internal/history"
	hfactory "github.com/loykin/playtrack/internal/history/factory"
	"github.com/loykin/playtrack/internal/logger"
	"github.com/loykin/playtrack/internal/matcher"
	"github.com/loykin/playtrack/internal/metrics"
	"github.com/loykin/playtrack/internal/process"
	"github.com/loykin/playtrack/internal/schedule"
	iapi "github.com/loykin/playtrack/internal/server"
	"github.com/loykin/playtrack/internal/store"
	sfactory "github.com/loykin/playtrack/internal/store/factory"
	"github.com/loykin/playtrack/internal/tracker"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Entry = catalog.Entry

type AppStats = store.AppStats

type Stats = store.Stats

type Store = store.Store

type Config = cfg.Config

type LogConfig = logger.Config

type MatcherConfig = matcher.Config

type Matcher = matcher.Matcher

type ProcessSource = process.Source

type HistorySink = history.Sink

type HistoryEvent = history.Event

var ErrNotFound = store.ErrNotFound

// Tracker is a thin facade over internal/tracker.Tracker that also owns the
// store and history sinks it was built with.
type Tracker struct {
	inner   *tracker.Tracker
	store   store.Store
	history *history.Fanout
	logger  *slog.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger *slog.Logger
	source process.Source
	store  store.Store
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithProcessSource replaces the gopsutil-backed process table.
func WithProcessSource(src process.Source) Option { return func(o *options) { o.source = src } }

// WithStore replaces the store opened from c.Store.DSN.
func WithStore(st Store) Option { return func(o *options) { o.store = st } }

// New builds a tracker from configuration: store from the DSN, history sinks when
// enabled, matcher, catalog roots and tracker options. Call Init before Start.
func New(c *Config, opts ...Option) (*Tracker, error) {
	if c == nil {
		c = cfg.Default()
	}
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.source == nil {
		o.source = process.NewGopsutilSource(o.logger)
	}

	st := o.store
	if st == nil {
		var err error
		st, err = sfactory.NewFromDSN(c.Store.DSN, o.logger)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	fan, err := NewHistory(c.History, o.logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	t := tracker.New(o.source, st,
		tracker.WithLogger(o.logger),
		tracker.WithMatcher(matcher.New(c.Matcher)),
		tracker.WithScanner(catalog.NewScanner(catalog.WithManifestExt(c.Catalog.ManifestExt), catalog.WithLogger(o.logger))),
		tracker.WithRoots(c.Catalog.Roots()...),
		tracker.WithLaunchers(c.Tracker.Launchers...),
		tracker.WithInterval(c.Tracker.Interval),
		tracker.WithPlaytimeCredit(c.Tracker.PlaytimeCredit),
		tracker.WithSampleTimeout(c.Tracker.SampleTimeout),
		tracker.WithRaisePriority(c.Tracker.RaisePriority),
		tracker.WithHistory(fan),
	)
	return &Tracker{inner: t, store: st, history: fan, logger: o.logger}, nil
}

// NewHistory opens every configured sink. It returns nil when history is disabled.
func NewHistory(h cfg.HistoryConfig, l *slog.Logger) (*history.Fanout, error) {
	if !h.Enabled {
		return nil, nil
	}
	var sinks []history.Sink
	for _, dsn := range h.DSNs {
		s, err := hfactory.NewSinkFromDSN(dsn)
		if err != nil {
			_ = history.NewFanout(l, h.Timeout, sinks...).Close()
			return nil, fmt.Errorf("open history sink %s: %w", dsn, err)
		}
		sinks = append(sinks, s)
	}
	return history.NewFanout(l, h.Timeout, sinks...), nil
}

func (t *Tracker) Init(ctx context.Context)        { t.inner.Init(ctx) }
func (t *Tracker) Cycle(ctx context.Context) error { return t.inner.Cycle(ctx) }
func (t *Tracker) Start(ctx context.Context) error { return t.inner.Start(ctx) }
func (t *Tracker) Stop()                           { t.inner.Stop() }
func (t *Tracker) Interval() time.Duration         { return t.inner.Interval() }
func (t *Tracker) Snapshot() Stats                 { return t.inner.Snapshot() }
func (t *Tracker) Stats(name string) (AppStats, bool) {
	return t.inner.Stats(name)
}
func (t *Tracker) Running() []string      { return t.inner.Running() }
func (t *Tracker) Catalog() []Entry       { return t.inner.Catalog() }
func (t *Tracker) RescanCatalog() []Entry { return t.inner.RescanCatalog() }
func (t *Tracker) RunningApplications(ctx context.Context) ([]string, error) {
	return t.inner.RunningApplications(ctx)
}

// Close stops the loop and releases the store and history sinks.
func (t *Tracker) Close() error {
	t.inner.Stop()
	var errs []error
	if t.history != nil {
		errs = append(errs, t.history.Close())
	}
	errs = append(errs, t.store.Close())
	return errors.Join(errs...)
}

// Scheduler runs repeating jobs such as catalog rescans.
type Scheduler struct{ inner *schedule.Scheduler }

type Job = schedule.Job // use a pointer when adding; it carries atomic counters

func NewScheduler(l *slog.Logger) *Scheduler { return &Scheduler{inner: schedule.NewScheduler(l)} }

func (s *Scheduler) Add(j *Job) error                { return s.inner.Add(j) }
func (s *Scheduler) Start(ctx context.Context) error { return s.inner.Start(ctx) }
func (s *Scheduler) Stop()                           { s.inner.Stop() }

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

func DefaultConfig() *Config { return cfg.Default() }

// NewLogger builds a slog logger from the [log] section. Close the returned
// closer to flush the rotated file.
func NewLogger(c LogConfig) (*slog.Logger, io.Closer, error) {
	return logger.New(c)
}

// OpenStore opens the stats store for dsn without starting a tracker.
func OpenStore(dsn string, l *slog.Logger) (Store, error) { return sfactory.NewFromDSN(dsn, l) }

// ScanCatalog scans the configured library roots once.
func ScanCatalog(c *Config) []Entry {
	s := catalog.NewScanner(catalog.WithManifestExt(c.Catalog.ManifestExt))
	return s.Scan(c.Catalog.Roots())
}

func NewMatcher(c MatcherConfig) *Matcher { return matcher.New(c) }

func NewHTTPServer(addr, basePath string, t *Tracker) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, t.inner)
}

// NewHTTPHandler returns the read API as an http.Handler for mounting in another server.
func NewHTTPHandler(basePath string, t *Tracker) http.Handler {
	return iapi.NewRouter(t.inner, basePath).Handler()
}

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	return NewMetricsServer(addr).ListenAndServe()
}

// NewMetricsServer returns an unstarted server exposing /metrics, for callers
// that need Shutdown.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
