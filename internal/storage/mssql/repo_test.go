package mssql

import (
	"context"
	"strings"
	"testing"

	"schemagen/internal/storage"
)

// TestLedgerDDL verifies the guarded CREATE TABLE for the ledger.
func TestLedgerDDL(t *testing.T) {
	t.Parallel()

	got := ledgerDDL("[schema_migrations]")
	if !strings.HasPrefix(got, "IF OBJECT_ID(N'[schema_migrations]', N'U') IS NULL\nBEGIN\n  CREATE TABLE [schema_migrations] (") {
		t.Fatalf("ledgerDDL() prefix mismatch:\n%s", got)
	}
	if !strings.HasSuffix(got, "\nEND;") {
		t.Fatalf("ledgerDDL() missing END:\n%s", got)
	}
}

// TestNewRepositoryRejectsBadDSN verifies DSN validation happens before any
// network access.
func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, err := NewRepository(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://%zz"})
	if err == nil {
		t.Fatalf("NewRepository() error = nil, want DSN error")
	}
	if !strings.Contains(err.Error(), "mssql dsn") {
		t.Fatalf("NewRepository() error = %v, want mssql dsn prefix", err)
	}
}

// TestRegistrationUsesNewRepositoryHook verifies storage.New routes the
// "mssql" kind through the hook.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	called := false
	newRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		called = true
		return nil, nil
	}

	if _, err := storage.New(context.Background(), storage.Config{Kind: "mssql"}); err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if !called {
		t.Fatalf("newRepository hook was not called")
	}
}
