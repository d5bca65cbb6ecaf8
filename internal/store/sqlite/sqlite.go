package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/playtrack/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the SQLite database file. Use ":memory:" for in-memory.

type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path and ensures the schema exists.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	d.SetMaxOpenConns(1)
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	s := &DB{db: d}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_stats(
			name TEXT PRIMARY KEY,
			playtime INTEGER NOT NULL,
			launches INTEGER NOT NULL,
			cpu REAL NOT NULL,
			memory REAL NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Load(ctx context.Context) (store.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, playtime, launches, cpu, memory FROM app_stats;`)
	if err != nil {
		return nil, fmt.Errorf("query app_stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanStats(rows)
}

// Save replaces the table content inside one transaction.
func (s *DB) Save(ctx context.Context, st store.Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM app_stats;`); err != nil {
		return fmt.Errorf("clear app_stats: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO app_stats(name, playtime, launches, cpu, memory, updated_at)
		VALUES(?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	now := time.Now().UTC()
	for name, a := range st {
		if _, err := stmt.ExecContext(ctx, name, a.PlaytimeSeconds, a.Launches, a.CPUPercent, a.MemPercent, now); err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func scanStats(rows *sql.Rows) (store.Stats, error) {
	out := make(store.Stats)
	for rows.Next() {
		var (
			name string
			a    store.AppStats
		)
		if err := rows.Scan(&name, &a.PlaytimeSeconds, &a.Launches, &a.CPUPercent, &a.MemPercent); err != nil {
			return nil, err
		}
		out[name] = a
	}
	return out, rows.Err()
}
