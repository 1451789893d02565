// Package mysql implements a MySQL storage.Repository using database/sql and
// go-sql-driver/mysql. MySQL commits DDL implicitly, so a failed ledger
// insert after a successful statement leaves the schema changed without a
// ledger row; the runner reports the error and the next run stops on it.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"schemagen/internal/dialect"
	"schemagen/internal/storage"
	"schemagen/internal/storage/sqldb"
)

// NewRepository validates the DSN, connects, and returns the repository.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.DB, error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	d, err := dialect.Lookup("mysql")
	if err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, "mysql", cfg.DSN, sqldb.Options{
		Kind:        "mysql",
		Dialect:     d,
		LedgerTable: cfg.Ledger(),
		LedgerDDL:   ledgerDDL,
		Placeholder: sqldb.QuestionMark,
	})
}

func ledgerDDL(table string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  seq INT NOT NULL,\n  name VARCHAR(255) NOT NULL PRIMARY KEY,\n  checksum VARCHAR(32) NOT NULL,\n  applied_at VARCHAR(64) NOT NULL\n)",
		table,
	)
}
