package sqldb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemagen/internal/dialect"
	"schemagen/internal/storage"

	_ "modernc.org/sqlite"
)

func sqliteDDL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + " (seq INTEGER, name TEXT PRIMARY KEY, checksum TEXT, applied_at TEXT)"
}

func newTestDB(t *testing.T) *DB {
	t.Helper()

	d, err := dialect.Lookup("sqlite")
	require.NoError(t, err)

	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "t.db"), Options{
		Kind:      "sqlite",
		Dialect:   d,
		LedgerDDL: sqliteDDL,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "?", QuestionMark(3))
	assert.Equal(t, "@p1", AtP(1))
	assert.Equal(t, "@p12", AtP(12))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	d, err := dialect.Lookup("mysql")
	require.NoError(t, err)

	raw, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer raw.Close()

	db := New(raw, Options{Kind: "mysql", Dialect: d})
	assert.Equal(t, "`"+storage.DefaultLedgerTable+"`", db.ledger)
	assert.Equal(t, "mysql", db.Dialect())
	assert.Equal(t, "?", db.opts.Placeholder(1))
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "sqlite", "  ", Options{Kind: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: DSN must not be empty")
}

func TestApplyAndRevert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Exec(ctx, "   "))
	require.NoError(t, db.EnsureLedger(ctx))
	require.NoError(t, db.EnsureLedger(ctx))

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	e := storage.LedgerEntry{Seq: 1, Name: "001_CreateUsersTable", Checksum: "abc", AppliedAt: at}
	require.NoError(t, db.Apply(ctx, `CREATE TABLE "Users" ("id" TEXT);`, e))

	got, err := db.Applied(ctx)
	require.NoError(t, err)
	require.Equal(t, []storage.LedgerEntry{e}, got)

	require.NoError(t, db.Revert(ctx, `DROP TABLE "Users";`, e.Name))
	got, err = db.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestApplyFailureKeepsLedgerClean(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.EnsureLedger(ctx))

	err := db.Apply(ctx, "ALTER TABLE missing ADD COLUMN x TEXT;", storage.LedgerEntry{Seq: 1, Name: "001_AddXToMissing", AppliedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: exec 001_AddXToMissing")

	got, err := db.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
