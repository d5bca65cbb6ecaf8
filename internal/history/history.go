package history

import (
	"context"
	"log/slog"
	"time"
)

// EventType defines the kind of application lifecycle event.
type EventType string

const (
	EventLaunch EventType = "launch"
	EventExit   EventType = "exit"
)

// DefaultSendTimeout bounds a single Send made through Fanout.
const DefaultSendTimeout = 5 * time.Second

// Event is one launch or exit observation exported to external systems.
// Counters carry the values at the time the event was observed.
type Event struct {
	Type            EventType `json:"type"`
	OccurredAt      time.Time `json:"occurred_at"`
	App             string    `json:"app"`
	PID             int32     `json:"pid"`
	PlaytimeSeconds int64     `json:"playtime"`
	Launches        int64     `json:"launches"`
	CPUPercent      float64   `json:"cpu"`
	MemPercent      float64   `json:"memory"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Fanout delivers each event to every sink, one bounded call per sink.
// Failures are logged and never returned.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

func NewFanout(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Fanout{sinks: sinks, timeout: timeout, logger: logger}
}

// Len reports the number of sinks.
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Send returns the number of sinks that accepted the event.
func (f *Fanout) Send(ctx context.Context, e Event) int {
	if f == nil {
		return 0
	}
	ok := 0
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := s.Send(sctx, e)
		cancel()
		if err != nil {
			f.logger.Warn("history sink send failed", "event", e.Type, "app", e.App, "error", err)
			continue
		}
		ok++
	}
	return ok
}

// Close closes every sink that has a Close method.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var first error
	for _, s := range f.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
