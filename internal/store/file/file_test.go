package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/loykin/playtrack/internal/store"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stats.json")
	s, err := New(p, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s, p
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, _ := newStore(t)
	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st == nil || len(st) != 0 {
		t.Fatalf("expected empty map, got %#v", st)
	}
}

func TestLoadGarbageIsEmpty(t *testing.T) {
	s, p := newStore(t)
	for _, body := range []string{"", "  \n", "{not json", "[1,2,3]", "null"} {
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		st, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("load %q: %v", body, err)
		}
		if len(st) != 0 {
			t.Fatalf("load %q: expected empty, got %v", body, st)
		}
	}
}

func TestSaveLoadRoundTripFormat(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()
	in := store.Stats{"testgame.exe": {PlaytimeSeconds: 3, Launches: 1, CPUPercent: 12.5, MemPercent: 1.25}}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{`"testgame.exe"`, `"playtime": 3`, `"launches": 1`, `"cpu": 12.5`, `"memory": 1.25`} {
		if !bytes.Contains(b, []byte(key)) {
			t.Fatalf("persisted file missing %s:\n%s", key, b)
		}
	}
	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: %v vs %v", in, out)
	}
}

func TestLoadSaveIdempotent(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()
	in := store.Stats{
		"b.exe": {PlaytimeSeconds: 9, Launches: 2, CPUPercent: 0.5, MemPercent: 3},
		"a.exe": {PlaytimeSeconds: 0, Launches: 1},
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	first, _ := os.ReadFile(p)
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Save(ctx, loaded); err != nil {
		t.Fatalf("save again: %v", err)
	}
	second, _ := os.ReadFile(p)
	if !bytes.Equal(first, second) {
		t.Fatalf("load->save changed content:\n%s\n---\n%s", first, second)
	}
}

func TestSaveOverwritesWholesale(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, store.Stats{"old.exe": {Launches: 1}})
	if err := s.Save(ctx, store.Stats{"new.exe": {Launches: 2}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, _ := s.Load(ctx)
	if _, ok := st["old.exe"]; ok || len(st) != 1 {
		t.Fatalf("expected only new.exe, got %v", st)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s, p := newStore(t)
	if err := s.Save(context.Background(), store.Stats{"x": {Launches: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ents, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(ents) != 1 || ents[0].Name() != "stats.json" {
		t.Fatalf("unexpected dir content: %v", ents)
	}
}

func TestConcurrentSaveAndLoadNeverTorn(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	a := store.Stats{"a": {Launches: 1}, "b": {Launches: 1}}
	b := store.Stats{"c": {Launches: 5}}
	_ = s.Save(ctx, a)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if i%2 == 0 {
				_ = s.Save(ctx, b)
			} else {
				_ = s.Save(ctx, a)
			}
		}
	}()
	errCh := make(chan string, 1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			st, err := s.Load(ctx)
			if err != nil {
				errCh <- err.Error()
				return
			}
			if !reflect.DeepEqual(st, a) && !reflect.DeepEqual(st, b) {
				errCh <- "observed torn map"
				return
			}
		}
	}()
	wg.Wait()
	select {
	case msg := <-errCh:
		t.Fatal(msg)
	default:
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New("  ", nil); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
