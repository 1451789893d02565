// Package sqldb implements storage.Repository on top of database/sql. The
// sqlite, mssql, and mysql backends share it and differ only in driver
// name, placeholder style, and ledger DDL.
//
// applied_at is stored as RFC 3339 text so the three drivers scan it the
// same way.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"schemagen/internal/dialect"
	"schemagen/internal/storage"
)

// Options configures a DB.
type Options struct {
	// Kind prefixes error messages, e.g. "sqlite".
	Kind string
	// Dialect renders identifiers and names the dialect migrations use.
	Dialect dialect.Dialect
	// LedgerTable is the unquoted ledger table name.
	LedgerTable string
	// LedgerDDL returns the CREATE statement for the quoted ledger table.
	LedgerDDL func(quoted string) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
}

// QuestionMark is the placeholder style of sqlite and mysql.
func QuestionMark(int) string { return "?" }

// AtP is the placeholder style of SQL Server (@p1, @p2, ...).
func AtP(n int) string { return fmt.Sprintf("@p%d", n) }

// DB is a database/sql backed storage.Repository.
type DB struct {
	db     *sql.DB
	opts   Options
	ledger string
}

var _ storage.Repository = (*DB)(nil)

// Open opens driverName with dsn, pings it, and wraps it in a DB.
func Open(ctx context.Context, driverName, dsn string, opts Options) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", opts.Kind)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", opts.Kind, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", opts.Kind, err)
	}
	return New(db, opts), nil
}

// New wraps an already-open *sql.DB.
func New(db *sql.DB, opts Options) *DB {
	if opts.LedgerTable == "" {
		opts.LedgerTable = storage.DefaultLedgerTable
	}
	if opts.Placeholder == nil {
		opts.Placeholder = QuestionMark
	}
	return &DB{db: db, opts: opts, ledger: opts.Dialect.QuoteIdent(opts.LedgerTable)}
}

// Exec runs a single statement. Blank statements are ignored.
func (d *DB) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", d.opts.Kind, err)
	}
	return nil
}

// EnsureLedger creates the ledger table if needed.
func (d *DB) EnsureLedger(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, d.opts.LedgerDDL(d.ledger)); err != nil {
		return fmt.Errorf("%s: create ledger: %w", d.opts.Kind, err)
	}
	return nil
}

// Applied lists ledger entries ordered by seq.
func (d *DB) Applied(ctx context.Context) ([]storage.LedgerEntry, error) {
	q := fmt.Sprintf("SELECT seq, name, checksum, applied_at FROM %s ORDER BY seq", d.ledger)
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: query ledger: %w", d.opts.Kind, err)
	}
	defer rows.Close()

	var out []storage.LedgerEntry
	for rows.Next() {
		var (
			e  storage.LedgerEntry
			at string
		)
		if err := rows.Scan(&e.Seq, &e.Name, &e.Checksum, &at); err != nil {
			return nil, fmt.Errorf("%s: scan ledger: %w", d.opts.Kind, err)
		}
		if e.AppliedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("%s: ledger %s applied_at %q: %w", d.opts.Kind, e.Name, at, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: read ledger: %w", d.opts.Kind, err)
	}
	return out, nil
}

// Apply runs stmt and inserts e in one transaction.
func (d *DB) Apply(ctx context.Context, stmt string, e storage.LedgerEntry) error {
	ph := d.opts.Placeholder
	ins := fmt.Sprintf(
		"INSERT INTO %s (seq, name, checksum, applied_at) VALUES (%s, %s, %s, %s)",
		d.ledger, ph(1), ph(2), ph(3), ph(4),
	)
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %s: %w", e.Name, err)
		}
		at := e.AppliedAt.UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx, ins, e.Seq, e.Name, e.Checksum, at); err != nil {
			return fmt.Errorf("record %s: %w", e.Name, err)
		}
		return nil
	})
}

// Revert runs stmt and deletes the ledger entry called name in one
// transaction.
func (d *DB) Revert(ctx context.Context, stmt string, name string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE name = %s", d.ledger, d.opts.Placeholder(1))
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, del, name); err != nil {
			return fmt.Errorf("forget %s: %w", name, err)
		}
		return nil
	})
}

func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", d.opts.Kind, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", d.opts.Kind, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", d.opts.Kind, err)
	}
	return nil
}

// Dialect returns the dialect name.
func (d *DB) Dialect() string { return d.opts.Dialect.Name() }

// Close closes the connection pool.
func (d *DB) Close() { _ = d.db.Close() }
