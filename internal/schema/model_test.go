package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnTypeSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ       ColumnType
		want      string
		supported bool
	}{
		{typ: UUID, want: "UUID", supported: true},
		{typ: Text, want: "TEXT", supported: true},
		{typ: Integer, want: "INTEGER", supported: true},
		{typ: Unsupported, want: "UNSUPPORTED", supported: false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.typ.SQL())
			assert.Equal(t, tt.supported, tt.typ.Supported())
		})
	}
}

func TestParseColumnType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ColumnType
	}{
		{in: "uuid", want: UUID},
		{in: "UUID", want: UUID},
		{in: "String", want: Text},
		{in: " text ", want: Text},
		{in: "Int", want: Integer},
		{in: "bigint", want: Integer},
		{in: "Data", want: Unsupported},
		{in: "", want: Unsupported},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseColumnType(tt.in), "ParseColumnType(%q)", tt.in)
	}
}

func TestParseChangeKind(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"create_table", "createTable", "CREATE-TABLE"} {
		k, err := ParseChangeKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, CreateTable, k, in)
	}

	k, err := ParseChangeKind("add_column")
	require.NoError(t, err)
	assert.Equal(t, AddColumn, k)

	_, err = ParseChangeKind("drop_table")
	require.Error(t, err)
}

func TestChangeKindZeroValueIsInvalid(t *testing.T) {
	t.Parallel()

	var k ChangeKind
	assert.False(t, k.Valid())
	assert.Equal(t, "ChangeKind(0)", k.String())
	_, err := k.MarshalText()
	require.Error(t, err)

	assert.True(t, CreateTable.Valid())
	assert.True(t, AddColumn.Valid())
}

func TestSchemaChangeJSON(t *testing.T) {
	t.Parallel()

	raw := `{"kind":"add_column","table":"Users","columns":[{"name":"age","type":"Int"},{"name":"avatar","type":"Data"}]}`

	var c SchemaChange
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Equal(t, AddColumn, c.Kind)
	assert.Equal(t, "Users", c.TableName)
	require.Len(t, c.Columns, 2)
	assert.Equal(t, ColumnDefinition{Name: "age", Type: Integer}, c.Columns[0])
	assert.Equal(t, Unsupported, c.Columns[1].Type)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"add_column","table":"Users","columns":[{"name":"age","type":"integer"},{"name":"avatar","type":"unsupported"}]}`, string(out))
}
