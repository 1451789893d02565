// Package postgres implements a Postgres storage.Repository using pgx v5.
// Postgres supports transactional DDL, so each migration and its ledger row
// commit or roll back together.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"schemagen/internal/dialect"
	"schemagen/internal/storage"
)

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool   *pgxpool.Pool
	ledger string
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository parses the DSN, opens a pool, and pings the server.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	d, err := dialect.Lookup("postgres")
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Repository{pool: pool, ledger: d.QuoteIdent(cfg.Ledger())}, nil
}

func ledgerDDL(table string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  seq INTEGER NOT NULL,\n  name TEXT PRIMARY KEY,\n  checksum TEXT NOT NULL,\n  applied_at TIMESTAMPTZ NOT NULL\n);",
		table,
	)
}

// Exec runs a single statement. Blank statements are ignored.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// EnsureLedger creates the ledger table if needed.
func (r *Repository) EnsureLedger(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, ledgerDDL(r.ledger)); err != nil {
		return fmt.Errorf("postgres: create ledger: %w", err)
	}
	return nil
}

// Applied lists ledger entries ordered by seq.
func (r *Repository) Applied(ctx context.Context) ([]storage.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT seq, name, checksum, applied_at FROM %s ORDER BY seq", r.ledger))
	if err != nil {
		return nil, fmt.Errorf("postgres: query ledger: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.LedgerEntry, error) {
		var e storage.LedgerEntry
		err := row.Scan(&e.Seq, &e.Name, &e.Checksum, &e.AppliedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: read ledger: %w", err)
	}
	return out, nil
}

// Apply runs stmt and records e in one transaction.
func (r *Repository) Apply(ctx context.Context, stmt string, e storage.LedgerEntry) error {
	ins := fmt.Sprintf("INSERT INTO %s (seq, name, checksum, applied_at) VALUES ($1, $2, $3, $4)", r.ledger)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: exec %s: %w", e.Name, err)
		}
		if _, err := tx.Exec(ctx, ins, e.Seq, e.Name, e.Checksum, e.AppliedAt.UTC()); err != nil {
			return fmt.Errorf("postgres: record %s: %w", e.Name, err)
		}
		return nil
	})
}

// Revert runs stmt and deletes the ledger entry called name in one
// transaction.
func (r *Repository) Revert(ctx context.Context, stmt string, name string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE name = $1", r.ledger)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: exec %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, del, name); err != nil {
			return fmt.Errorf("postgres: forget %s: %w", name, err)
		}
		return nil
	})
}

// Dialect returns "postgres".
func (r *Repository) Dialect() string { return "postgres" }

// Close closes the pool.
func (r *Repository) Close() { r.pool.Close() }
