package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileWriterDefaults(t *testing.T) {
	cfg := Config{}
	if cfg.FileWriter() != nil {
		t.Fatalf("expected nil writer when File is empty")
	}
	cfg = Config{File: "x.log"}
	w := cfg.FileWriter()
	if w.MaxSize != 10 || w.MaxBackups != 3 || w.MaxAge != 7 {
		t.Fatalf("unexpected defaults: size=%d backups=%d age=%d", w.MaxSize, w.MaxBackups, w.MaxAge)
	}
}

func TestFileWriterOverrides(t *testing.T) {
	cfg := Config{File: "x2", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 11, Compress: true}
	w := cfg.FileWriter()
	if w.MaxSize != 1 || w.MaxBackups != 9 || w.MaxAge != 11 || !w.Compress {
		t.Fatalf("unexpected overrides: size=%d backups=%d age=%d compress=%t", w.MaxSize, w.MaxBackups, w.MaxAge, w.Compress)
	}
}

func TestNewWritesToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "playtrack.log")
	lg, closer, err := New(Config{File: p, Format: FormatJSON, Level: "debug"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Debug("cycle done", "running", 2)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(b), &m); err != nil {
		t.Fatalf("expected one json line, got %q: %v", b, err)
	}
	if m["msg"] != "cycle done" || m["running"] != float64(2) {
		t.Fatalf("unexpected record: %v", m)
	}
}

func TestNewFileAndStderr(t *testing.T) {
	p := filepath.Join(t.TempDir(), "both.log")
	var errBuf bytes.Buffer
	lg, closer, err := newWithStderr(Config{File: p, Stderr: true, Format: FormatText}, &errBuf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Info("hello")
	_ = closer.Close()
	b, _ := os.ReadFile(p)
	if !strings.Contains(string(b), "msg=hello") || !strings.Contains(errBuf.String(), "msg=hello") {
		t.Fatalf("expected record in both outputs: file=%q stderr=%q", b, errBuf.String())
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	lg, _, err := newWithStderr(Config{Level: "warn", Format: FormatText}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Info("quiet")
	lg.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("level filter not applied: %q", buf.String())
	}
}

func TestNewRejectsUnknown(t *testing.T) {
	if _, _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, _, err := New(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestColorTextHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	lg := slog.New(h).With("component", "tracker")
	lg.Error("save failed")
	out := buf.String()
	if !strings.Contains(out, "\033[31m") {
		t.Fatalf("expected red color code: %q", out)
	}
	if !strings.Contains(out, "component=tracker") {
		t.Fatalf("attrs lost through With: %q", out)
	}
	if strings.Contains(out, "time=") {
		t.Fatalf("time should be dropped when showTime is false: %q", out)
	}
	if _, ok := lg.Handler().(*ColorTextHandler); !ok {
		t.Fatalf("With must keep the color handler, got %T", lg.Handler())
	}
}
