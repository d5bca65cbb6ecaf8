package matcher

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Similarity algorithms accepted by Config.Algorithm.
const (
	AlgorithmIndel       = "indel"
	AlgorithmLevenshtein = "levenshtein"
)

const DefaultThreshold = 70

// DefaultDenylist names core OS processes that are never treated as applications.
var DefaultDenylist = []string{
	"System",
	"System Idle Process",
	"Registry",
	"smss.exe",
	"csrss.exe",
	"wininit.exe",
	"winlogon.exe",
	"services.exe",
	"lsass.exe",
	"svchost.exe",
	"dwm.exe",
	"explorer.exe",
	"fontdrvhost.exe",
	"conhost.exe",
	"RuntimeBroker.exe",
	"taskhostw.exe",
	"sihost.exe",
	"ctfmon.exe",
	"init",
	"systemd",
	"kthreadd",
	"launchd",
	"kernel_task",
}

// Config controls what the matcher excludes and how close a name must be.
type Config struct {
	Denylist  []string `mapstructure:"denylist"`
	Threshold int      `mapstructure:"threshold"`
	Algorithm string   `mapstructure:"algorithm"`
}

// Validate reports configuration values the matcher cannot work with.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("matcher threshold must be within 0..100, got %d", c.Threshold)
	}
	switch strings.ToLower(strings.TrimSpace(c.Algorithm)) {
	case "", AlgorithmIndel, AlgorithmLevenshtein:
		return nil
	default:
		return fmt.Errorf("unknown matcher algorithm %q", c.Algorithm)
	}
}

// Matcher decides whether a process name is close enough to a catalog name.
// It holds no mutable state after construction and is safe for concurrent use.
type Matcher struct {
	deny      map[string]struct{}
	threshold int
	algo      string
}

// New builds a matcher. A nil Denylist falls back to DefaultDenylist; an empty
// non-nil one disables the denylist. A zero Threshold means DefaultThreshold.
func New(cfg Config) *Matcher {
	deny := cfg.Denylist
	if deny == nil {
		deny = DefaultDenylist
	}
	m := &Matcher{
		deny:      make(map[string]struct{}, len(deny)),
		threshold: cfg.Threshold,
		algo:      strings.ToLower(strings.TrimSpace(cfg.Algorithm)),
	}
	for _, d := range deny {
		m.deny[d] = struct{}{}
	}
	if m.threshold == 0 {
		m.threshold = DefaultThreshold
	}
	if m.algo == "" {
		m.algo = AlgorithmIndel
	}
	return m
}

func (m *Matcher) Threshold() int { return m.threshold }

// Excluded reports whether name is on the denylist (exact, case-sensitive)
// or looks like a service (lowercase name contains "service").
func (m *Matcher) Excluded(name string) bool {
	if _, ok := m.deny[name]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(name), "service")
}

// Ratio scores the similarity of a and b in 0..100, 100 meaning identical.
func (m *Matcher) Ratio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 100
	}
	switch m.algo {
	case AlgorithmLevenshtein:
		longest := la
		if lb > longest {
			longest = lb
		}
		d := edlib.LevenshteinDistance(a, b)
		return int(math.Round(100 * (1 - float64(d)/float64(longest))))
	default:
		total := la + lb
		d := edlib.LCSEditDistance(a, b)
		return int(math.Round(100 * float64(total-d) / float64(total)))
	}
}

// Best returns the highest ratio between processName and any catalog name,
// comparing lowercase forms. ok is false when names is empty.
func (m *Matcher) Best(processName string, names []string) (score int, ok bool) {
	p := strings.ToLower(processName)
	best := -1
	for _, n := range names {
		if r := m.Ratio(p, strings.ToLower(n)); r > best {
			best = r
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// IsTracked reports whether processName should count as a catalog application.
// Excluded names never match regardless of score; an empty catalog matches nothing.
func (m *Matcher) IsTracked(processName string, names []string) bool {
	if m.Excluded(processName) {
		return false
	}
	score, ok := m.Best(processName, names)
	return ok && score >= m.threshold
}
