// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. SQLite supports
// transactional DDL, so each migration and its ledger row commit together.
package sqlite

import (
	"context"
	"fmt"

	"schemagen/internal/dialect"
	"schemagen/internal/storage"
	"schemagen/internal/storage/sqldb"

	_ "modernc.org/sqlite"
)

// NewRepository opens a SQLite database. DSN is passed to the driver as-is,
// for example:
//
//	"file:app.db?_pragma=foreign_keys(1)"
//	"app.db"
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.DB, error) {
	d, err := dialect.Lookup("sqlite")
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, "sqlite", cfg.DSN, sqldb.Options{
		Kind:        "sqlite",
		Dialect:     d,
		LedgerTable: cfg.Ledger(),
		LedgerDDL:   ledgerDDL,
		Placeholder: sqldb.QuestionMark,
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func ledgerDDL(table string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  seq INTEGER NOT NULL,\n  name TEXT NOT NULL PRIMARY KEY,\n  checksum TEXT NOT NULL,\n  applied_at TEXT NOT NULL\n);",
		table,
	)
}
