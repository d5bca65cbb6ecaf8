package factory

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/loykin/playtrack/internal/store"
	"github.com/loykin/playtrack/internal/store/file"
	pg "github.com/loykin/playtrack/internal/store/postgres"
	sq "github.com/loykin/playtrack/internal/store/sqlite"
)

// NewFromDSN selects a store implementation based on DSN.
// Supported:
//   - postgres: DSN starting with "postgres://" or "postgresql://"
//   - sqlite:   "sqlite://<path>" or a path ending in .db / .sqlite / .sqlite3
//   - file:     "file://<path>" or any other path (JSON document)
func NewFromDSN(dsn string, logger *slog.Logger) (store.Store, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if ld == "" {
		return nil, errors.New("empty DSN")
	}
	switch {
	case strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://"):
		return pg.New(d)
	case strings.HasPrefix(ld, "sqlite://"):
		return sq.New(d[len("sqlite://"):])
	case strings.HasPrefix(ld, "file://"):
		return file.New(d[len("file://"):], logger)
	}
	switch strings.ToLower(filepath.Ext(d)) {
	case ".db", ".sqlite", ".sqlite3":
		return sq.New(d)
	}
	return file.New(d, logger)
}
