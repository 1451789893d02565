package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemagen/internal/storage"
)

func newTestRepo(t *testing.T) storage.Repository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "schemagen.db")
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func TestLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepo(t)
	assert.Equal(t, "sqlite", repo.Dialect())

	require.NoError(t, repo.EnsureLedger(ctx))
	// Creating the ledger twice is harmless.
	require.NoError(t, repo.EnsureLedger(ctx))

	applied, err := repo.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	at := time.Date(2025, 1, 11, 16, 42, 30, 0, time.UTC)
	require.NoError(t, repo.Apply(ctx, `CREATE TABLE "Users" ("id" TEXT, "name" TEXT);`,
		storage.LedgerEntry{Seq: 1, Name: "CreateUsersTable", Checksum: "abc", AppliedAt: at}))
	require.NoError(t, repo.Apply(ctx, `ALTER TABLE "Users" ADD COLUMN "age" INTEGER;`,
		storage.LedgerEntry{Seq: 2, Name: "AddAgeToUsers", Checksum: "def", AppliedAt: at.Add(time.Second)}))

	applied, err = repo.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, storage.LedgerEntry{Seq: 1, Name: "CreateUsersTable", Checksum: "abc", AppliedAt: at}, applied[0])
	assert.Equal(t, "AddAgeToUsers", applied[1].Name)

	// The table exists with the added column.
	require.NoError(t, repo.Exec(ctx, `INSERT INTO "Users" ("id", "name", "age") VALUES ('1', 'ann', 42);`))

	require.NoError(t, repo.Revert(ctx, `ALTER TABLE "Users" DROP COLUMN "age";`, "AddAgeToUsers"))
	applied, err = repo.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "CreateUsersTable", applied[0].Name)
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.EnsureLedger(ctx))

	err := repo.Apply(ctx, `ALTER TABLE "Missing" ADD COLUMN "x" TEXT;`,
		storage.LedgerEntry{Seq: 1, Name: "AddXToMissing", Checksum: "c", AppliedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: exec AddXToMissing")

	applied, err := repo.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestNewRepositoryRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewRepository(context.Background(), storage.Config{Kind: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN must not be empty")
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg storage.Config
	newRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		gotCfg = cfg
		return nil, nil
	}

	cfg := storage.Config{Kind: "sqlite", DSN: "file:test.db?mode=memory", LedgerTable: "applied"}
	_, err := storage.New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, gotCfg)
}
