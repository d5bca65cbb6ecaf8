package store

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned when a single application has no stats entry.
var ErrNotFound = errors.New("app stats not found")

// AppStats is the behavioral profile kept for one executable name.
// Playtime is credited in cycle units (see tracker), not measured wall time.
type AppStats struct {
	PlaytimeSeconds int64   `json:"playtime"`
	Launches        int64   `json:"launches"`
	CPUPercent      float64 `json:"cpu"`
	MemPercent      float64 `json:"memory"`
}

// Stats maps executable names to their profile.
type Stats map[string]AppStats

// Clone returns an independent copy. A nil receiver yields an empty map.
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Names returns the keys sorted ascending.
func (s Stats) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Store persists the whole stats map. Save replaces everything previously
// stored; a concurrent Load observes either the old or the new map, never a mix.
// Load on a fresh store returns an empty map and no error.
type Store interface {
	Load(ctx context.Context) (Stats, error)
	Save(ctx context.Context, s Stats) error
	Close() error
}
