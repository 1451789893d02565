package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemagen/internal/dialect"
	"schemagen/internal/migration"
	"schemagen/internal/schema"
	"schemagen/internal/storage"
	"schemagen/internal/storage/sqlite"
)

var at = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRunner(t *testing.T) (*Runner, *test.Hook) {
	t.Helper()

	repo, err := sqlite.NewRepository(context.Background(), storage.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "schemagen.db"),
	})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return &Runner{Repo: repo, Job: "test", Log: logger, Now: func() time.Time { return at }}, hook
}

func usersBatch() []migration.Migration {
	return migration.Generate([]schema.SchemaChange{
		{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}, {Name: "name", Type: schema.Text}}},
		{Kind: schema.AddColumn, TableName: "Users", Columns: []schema.ColumnDefinition{{Name: "age", Type: schema.Integer}}},
		{Kind: schema.CreateTable, TableName: "Posts", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}}},
	})
}

func TestUpAppliesPendingOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, hook := newRunner(t)
	batch := usersBatch()

	n, err := r.Up(ctx, batch[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Extending the batch applies only the new tail.
	n, err = r.Up(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.Up(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	applied, err := r.Repo.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, storage.LedgerEntry{
		Seq:       1,
		Name:      "001_CreateUsersTable",
		Checksum:  Checksum(`CREATE TABLE "Users" ("id" TEXT, "name" TEXT);`),
		AppliedAt: at,
	}, applied[0])
	assert.Equal(t, "002_AddAgeToUsers", applied[1].Name)
	assert.Equal(t, "003_CreatePostsTable", applied[2].Name)

	require.NoError(t, r.Repo.Exec(ctx, `INSERT INTO "Users" ("id", "name", "age") VALUES ('1', 'ann', 42);`))

	var sawApplied bool
	for _, e := range hook.AllEntries() {
		if e.Message == "applied" && e.Data["migration"] == "001_CreateUsersTable" && e.Data["direction"] == "up" {
			sawApplied = true
		}
	}
	assert.True(t, sawApplied)
}

func TestUpAbortsOnRenderFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRunner(t)

	batch := migration.Generate([]schema.SchemaChange{
		{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}}},
		{Kind: schema.CreateTable, TableName: "Order", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}}},
	})

	n, err := r.Up(ctx, batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, migration.ErrReservedKeyword)
	assert.Contains(t, err.Error(), "002_CreateOrderTable")
	assert.Equal(t, 0, n)

	applied, err := r.Repo.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestUpRejectsEmptyTableNameSegment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRunner(t)

	batch := migration.Generate([]schema.SchemaChange{
		{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}}},
		{Kind: schema.CreateTable, TableName: "main..events", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}}},
	})

	n, err := r.Up(ctx, batch)
	require.ErrorIs(t, err, dialect.ErrEmptyNameSegment)
	assert.Equal(t, 0, n)

	applied, err := r.Repo.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestRenderErrorLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "reserved_keyword", RenderErrorLabel(migration.ErrReservedKeyword))
	assert.Equal(t, "empty_name_segment", RenderErrorLabel(dialect.ErrEmptyNameSegment))
	assert.Equal(t, "", RenderErrorLabel(context.Canceled))
}

func TestUpDetectsDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRunner(t)

	_, err := r.Up(ctx, usersBatch()[:1])
	require.NoError(t, err)

	changed := migration.Generate([]schema.SchemaChange{
		{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{{Name: "id", Type: schema.UUID}}},
		{Kind: schema.AddColumn, TableName: "Users", Columns: []schema.ColumnDefinition{{Name: "age", Type: schema.Integer}}},
	})
	n, err := r.Up(ctx, changed)
	require.ErrorIs(t, err, ErrDrift)
	assert.Equal(t, 0, n)

	status, err := r.Status(ctx, changed)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Applied)
	assert.True(t, status[0].Drift)
	assert.False(t, status[1].Applied)
}

func TestDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRunner(t)
	batch := usersBatch()

	_, err := r.Up(ctx, batch)
	require.NoError(t, err)

	n, err := r.Down(ctx, batch, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	applied, err := r.Repo.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "002_AddAgeToUsers", applied[1].Name)
	require.Error(t, r.Repo.Exec(ctx, `SELECT 1 FROM "Posts";`))

	n, err = r.Down(ctx, batch, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	applied, err = r.Repo.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	require.Error(t, r.Repo.Exec(ctx, `SELECT 1 FROM "Users";`))

	n, err = r.Down(ctx, batch, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDownUnknownApplied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRunner(t)
	batch := usersBatch()

	_, err := r.Up(ctx, batch)
	require.NoError(t, err)

	_, err = r.Down(ctx, batch[:2], 1)
	require.ErrorIs(t, err, ErrUnknownApplied)
	assert.Contains(t, err.Error(), "003_CreatePostsTable")
}

func TestStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRunner(t)
	batch := append(usersBatch(), migration.AddColumnMigration{
		TableName: "Users",
		Column:    schema.ColumnDefinition{Name: "select", Type: schema.Text},
	})

	_, err := r.Up(ctx, batch[:1])
	require.NoError(t, err)

	status, err := r.Status(ctx, batch)
	require.NoError(t, err)
	require.Len(t, status, 4)

	assert.Equal(t, Status{Seq: 1, Name: "001_CreateUsersTable", Applied: true, AppliedAt: at}, status[0])
	assert.Equal(t, Status{Seq: 2, Name: "002_AddAgeToUsers"}, status[1])
	assert.False(t, status[2].Applied)
	assert.ErrorIs(t, status[3].Err, migration.ErrReservedKeyword)
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	a := Checksum("CREATE TABLE Users (id UUID);")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Checksum("CREATE TABLE Users (id UUID);"))
	assert.NotEqual(t, a, Checksum("CREATE TABLE Users (id TEXT);"))
}
