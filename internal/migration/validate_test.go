package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemagen/internal/schema"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		change schema.SchemaChange
		want   error
	}{
		{
			name: "valid create",
			change: schema.SchemaChange{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{
				col("id", schema.UUID), col("name", schema.Text),
			}},
		},
		{
			name:   "missing table name",
			change: schema.SchemaChange{Kind: schema.CreateTable, Columns: []schema.ColumnDefinition{col("id", schema.UUID)}},
			want:   ErrMissingTableName,
		},
		{
			name:   "reserved table name",
			change: schema.SchemaChange{Kind: schema.CreateTable, TableName: "Order", Columns: []schema.ColumnDefinition{col("id", schema.UUID)}},
			want:   ErrReservedKeyword,
		},
		{
			name:   "empty column name",
			change: schema.SchemaChange{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{col("", schema.UUID)}},
			want:   ErrEmptyColumnName,
		},
		{
			name:   "unsupported column type",
			change: schema.SchemaChange{Kind: schema.CreateTable, TableName: "Users", Columns: []schema.ColumnDefinition{col("profile_picture", schema.Unsupported)}},
			want:   ErrUnsupportedColumnType,
		},
		{
			name:   "valid add column",
			change: schema.SchemaChange{Kind: schema.AddColumn, TableName: "Users", Columns: []schema.ColumnDefinition{col("age", schema.Integer)}},
		},
		{
			name:   "add column without column",
			change: schema.SchemaChange{Kind: schema.AddColumn, TableName: "Users"},
			want:   ErrEmptyColumns,
		},
		{
			name:   "add column without table",
			change: schema.SchemaChange{Kind: schema.AddColumn},
			want:   ErrMissingTableName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.change)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)

			// Eager validation agrees with render-time validation.
			_, upErr := Generate([]schema.SchemaChange{tt.change})[0].Up()
			assert.Equal(t, KindOf(err), KindOf(upErr))
		})
	}
}

func TestFormatCreateTable(t *testing.T) {
	t.Parallel()

	got, err := FormatCreateTable("Users", []schema.ColumnDefinition{
		col("id", schema.UUID), col("name", schema.Text), col("email", schema.Text),
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE Users (id UUID, name TEXT, email TEXT);", got)

	_, err = FormatCreateTable("", []schema.ColumnDefinition{col("id", schema.UUID)})
	require.ErrorIs(t, err, ErrMissingTableName)

	_, err = FormatCreateTable("Users", nil)
	require.ErrorIs(t, err, ErrEmptyColumns)

	// The formatter does not apply keyword rules.
	got, err = FormatCreateTable("Order", []schema.ColumnDefinition{col("id", schema.UUID)})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE Order (id UUID);", got)
}

func TestFormatAddColumn(t *testing.T) {
	t.Parallel()

	got, err := FormatAddColumn("Users", col("age", schema.Integer))
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE Users ADD COLUMN age INTEGER;", got)

	_, err = FormatAddColumn("", col("age", schema.Integer))
	require.ErrorIs(t, err, ErrMissingTableName)

	_, err = FormatAddColumn("Users", col("", schema.Integer))
	require.ErrorIs(t, err, ErrEmptyColumnName)
}
