// Package mssql implements a Microsoft SQL Server storage.Repository using
// database/sql and go-mssqldb. T-SQL has no CREATE TABLE IF NOT EXISTS, so
// the ledger DDL is wrapped in an OBJECT_ID guard.
package mssql

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"schemagen/internal/dialect"
	"schemagen/internal/storage"
	"schemagen/internal/storage/sqldb"
)

// NewRepository validates the DSN, connects, and returns the repository.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.DB, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	d, err := dialect.Lookup("mssql")
	if err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, "sqlserver", cfg.DSN, sqldb.Options{
		Kind:        "mssql",
		Dialect:     d,
		LedgerTable: cfg.Ledger(),
		LedgerDDL:   ledgerDDL,
		Placeholder: sqldb.AtP,
	})
}

// ledgerDDL renders:
//
//	IF OBJECT_ID(N'[schema_migrations]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema_migrations] (...);
//	END;
func ledgerDDL(table string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    seq INT NOT NULL,\n    name NVARCHAR(255) NOT NULL PRIMARY KEY,\n    checksum NVARCHAR(32) NOT NULL,\n    applied_at NVARCHAR(64) NOT NULL\n  );\nEND;",
		table, table,
	)
}
