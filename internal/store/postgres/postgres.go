package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/playtrack/internal/store"
)

// DB implements store.Store on PostgreSQL through the pgx stdlib driver.
// New does not connect; the schema is created on first use.
type DB struct {
	db *sql.DB

	schemaMu sync.Mutex
	schemaOK bool
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()
	if p.schemaOK {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_stats(
			name TEXT PRIMARY KEY,
			playtime BIGINT NOT NULL,
			launches BIGINT NOT NULL,
			cpu DOUBLE PRECISION NOT NULL,
			memory DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	p.schemaOK = true
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Load(ctx context.Context) (store.Stats, error) {
	if err := p.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, `SELECT name, playtime, launches, cpu, memory FROM app_stats;`)
	if err != nil {
		return nil, fmt.Errorf("query app_stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// Save swaps the whole table inside a transaction; concurrent readers see
// the committed snapshot before or after, never a partial one.
func (p *DB) Save(ctx context.Context, st store.Stats) error {
	if err := p.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM app_stats;`); err != nil {
		return fmt.Errorf("clear app_stats: %w", err)
	}
	now := time.Now().UTC()
	for name, a := range st {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO app_stats(name, playtime, launches, cpu, memory, updated_at)
			VALUES($1,$2,$3,$4,$5,$6);`,
			name, a.PlaytimeSeconds, a.Launches, a.CPUPercent, a.MemPercent, now)
		if err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	return tx.Commit()
}
