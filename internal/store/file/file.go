package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/loykin/playtrack/internal/store"
)

// Store keeps the stats map as a single JSON object on disk.
// Saves go through a temp file plus rename so readers never see a torn file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// New returns a JSON file store at path. The file need not exist yet.
func New(path string, logger *slog.Logger) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty stats file path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: filepath.Clean(p), logger: logger}, nil
}

func (s *Store) Path() string { return s.path }

// Load reads the whole map. A missing, empty or unparseable file is the
// first-run state and yields an empty map without error.
func (s *Store) Load(ctx context.Context) (store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.Stats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return store.Stats{}, nil
	}
	var st store.Stats
	if err := json.Unmarshal(b, &st); err != nil {
		s.logger.Warn("stats file unparseable, starting empty", "path", s.path, "error", err)
		return store.Stats{}, nil
	}
	if st == nil {
		st = store.Stats{}
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, st store.Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st == nil {
		st = store.Stats{}
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create stats dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp stats file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp stats file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp stats file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp stats file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
