package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (r *recSink) Send(ctx context.Context, e Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recSink) Close() error { r.closed = true; return nil }

type slowSink struct{}

func (slowSink) Send(ctx context.Context, e Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a, b := &recSink{}, &recSink{}
	f := NewFanout(nil, time.Second, a, b)
	e := Event{Type: EventLaunch, OccurredAt: time.Now().UTC(), App: "testgame.exe", PID: 42, Launches: 1}
	if n := f.Send(context.Background(), e); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if len(a.events) != 1 || len(b.events) != 1 || a.events[0].App != "testgame.exe" {
		t.Fatalf("unexpected deliveries: %v %v", a.events, b.events)
	}
	if f.Len() != 2 {
		t.Fatalf("len = %d", f.Len())
	}
}

func TestFanoutSkipsFailingSink(t *testing.T) {
	bad := &recSink{err: errors.New("down")}
	good := &recSink{}
	f := NewFanout(nil, time.Second, bad, good)
	if n := f.Send(context.Background(), Event{Type: EventExit, App: "x"}); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if len(good.events) != 1 {
		t.Fatalf("good sink missed event")
	}
}

func TestFanoutBoundsSlowSink(t *testing.T) {
	good := &recSink{}
	f := NewFanout(nil, 20*time.Millisecond, slowSink{}, good)
	start := time.Now()
	if n := f.Send(context.Background(), Event{Type: EventLaunch, App: "x"}); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("slow sink was not bounded")
	}
}

func TestFanoutNilAndClose(t *testing.T) {
	var f *Fanout
	if f.Send(context.Background(), Event{}) != 0 || f.Len() != 0 || f.Close() != nil {
		t.Fatalf("nil fanout must be a no-op")
	}
	s := &recSink{}
	if err := NewFanout(nil, 0, s).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !s.closed {
		t.Fatalf("sink not closed")
	}
}
