package factory

import (
	"path/filepath"
	"testing"

	"github.com/loykin/playtrack/internal/store/file"
	pg "github.com/loykin/playtrack/internal/store/postgres"
	sq "github.com/loykin/playtrack/internal/store/sqlite"
)

func TestFactoryDSNSelection(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFromDSN("", nil); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
	// postgres scheme -> postgres driver object (sql.Open does not connect)
	s, err := NewFromDSN("postgres://user@localhost/db", nil)
	if err != nil {
		t.Fatalf("postgres dsn: %v", err)
	}
	if _, ok := s.(*pg.DB); !ok {
		t.Fatalf("postgres dsn: got %T", s)
	}
	_ = s.Close()

	cases := []struct {
		dsn  string
		want string
	}{
		{"sqlite://:memory:", "sqlite"},
		{filepath.Join(dir, "stats.db"), "sqlite"},
		{filepath.Join(dir, "stats.SQLITE"), "sqlite"},
		{"file://" + filepath.Join(dir, "a.json"), "file"},
		{filepath.Join(dir, "b.json"), "file"},
		{filepath.Join(dir, "plain"), "file"},
	}
	for _, c := range cases {
		s, err := NewFromDSN(c.dsn, nil)
		if err != nil {
			t.Fatalf("%s: %v", c.dsn, err)
		}
		var got string
		switch s.(type) {
		case *sq.DB:
			got = "sqlite"
		case *file.Store:
			got = "file"
		default:
			got = "other"
		}
		if got != c.want {
			t.Fatalf("%s: got %s (%T), want %s", c.dsn, got, s, c.want)
		}
		_ = s.Close()
	}
}

func TestFileSchemeKeepsPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "stats.json")
	s, err := NewFromDSN("file://"+p, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	fs, ok := s.(*file.Store)
	if !ok {
		t.Fatalf("expected file store, got %T", s)
	}
	if fs.Path() != filepath.Clean(p) {
		t.Fatalf("path mismatch: %s vs %s", fs.Path(), p)
	}
}
