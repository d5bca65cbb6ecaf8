package tracker

import (
	"log/slog"
	"time"

	"github.com/loykin/playtrack/internal/catalog"
	"github.com/loykin/playtrack/internal/history"
	"github.com/loykin/playtrack/internal/matcher"
)

// Defaults applied by New.
const (
	DefaultInterval       = 60 * time.Second
	DefaultSampleTimeout  = 2 * time.Second
	DefaultPlaytimeCredit = 1
)

// DefaultLaunchers are the parent process names whose children count as launches.
var DefaultLaunchers = []string{"steam", "steam.exe", "Steam.exe"}

type Option func(*Tracker)

func WithMatcher(m *matcher.Matcher) Option {
	return func(t *Tracker) {
		if m != nil {
			t.matcher = m
		}
	}
}

func WithScanner(s *catalog.Scanner) Option {
	return func(t *Tracker) {
		if s != nil {
			t.scanner = s
		}
	}
}

// WithRoots sets the catalog library roots scanned by Init and RescanCatalog.
func WithRoots(roots ...string) Option {
	return func(t *Tracker) { t.roots = append([]string(nil), roots...) }
}

// WithLaunchers replaces the launcher allowlist. Membership is case-sensitive.
func WithLaunchers(names ...string) Option {
	return func(t *Tracker) {
		t.launchers = make(map[string]struct{}, len(names))
		for _, n := range names {
			t.launchers[n] = struct{}{}
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithPlaytimeCredit sets how much playtime one cycle credits to a running app.
func WithPlaytimeCredit(n int64) Option {
	return func(t *Tracker) {
		if n >= 0 {
			t.credit = n
		}
	}
}

func WithSampleTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.sampleTimeout = d
		}
	}
}

func WithRaisePriority(on bool) Option {
	return func(t *Tracker) { t.raisePriority = on }
}

// WithHistory routes launch and exit events to the given fanout.
func WithHistory(f *history.Fanout) Option {
	return func(t *Tracker) { t.history = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}
