// Package schema holds the value types that describe requested database
// alterations: a table is created, or a column is added to one. The types
// are plain data; validation happens when a migration is rendered from them.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the closed set of column kinds a migration can declare.
// Unsupported marks a type the upstream type model could not map.
type ColumnType int

const (
	Unsupported ColumnType = iota
	UUID
	Text
	Integer
)

// SQL returns the literal rendered into statements. Unsupported returns
// "UNSUPPORTED"; renderers reject it before it can reach a statement.
func (t ColumnType) SQL() string {
	switch t {
	case UUID:
		return "UUID"
	case Text:
		return "TEXT"
	case Integer:
		return "INTEGER"
	default:
		return "UNSUPPORTED"
	}
}

// Supported reports whether t has a concrete SQL rendering.
func (t ColumnType) Supported() bool {
	return t == UUID || t == Text || t == Integer
}

func (t ColumnType) String() string {
	switch t {
	case UUID:
		return "uuid"
	case Text:
		return "text"
	case Integer:
		return "integer"
	default:
		return "unsupported"
	}
}

// ParseColumnType maps a logical type name to a ColumnType. Matching is
// case-insensitive and accepts both SQL-ish ("text", "bigint") and
// model-ish ("String", "Int") spellings. Anything else is Unsupported.
func ParseColumnType(kind string) ColumnType {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "uuid":
		return UUID
	case "text", "string":
		return Text
	case "int", "integer", "bigint", "int64", "int32":
		return Integer
	default:
		return Unsupported
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode to
// Unsupported rather than failing, so a change file can carry types the
// generator will later reject with a typed error.
func (t *ColumnType) UnmarshalText(b []byte) error {
	*t = ParseColumnType(string(b))
	return nil
}

// ColumnDefinition is one column of a table.
type ColumnDefinition struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// ChangeKind selects the alteration a SchemaChange requests. The zero value
// is not a valid kind, so a decoded change without a kind can be detected.
type ChangeKind int

const (
	CreateTable ChangeKind = iota + 1
	AddColumn
)

// Valid reports whether k is CreateTable or AddColumn.
func (k ChangeKind) Valid() bool {
	return k == CreateTable || k == AddColumn
}

func (k ChangeKind) String() string {
	switch k {
	case CreateTable:
		return "create_table"
	case AddColumn:
		return "add_column"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ParseChangeKind accepts "create_table"/"add_column" (case-insensitive,
// '-' and '_' interchangeable, also the camel-case "createTable").
func ParseChangeKind(s string) (ChangeKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "").Replace(norm)
	switch norm {
	case "createtable":
		return CreateTable, nil
	case "addcolumn":
		return AddColumn, nil
	default:
		return 0, fmt.Errorf("schema: unknown change kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ChangeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("schema: invalid change kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChangeKind) UnmarshalText(b []byte) error {
	v, err := ParseChangeKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// SchemaChange is one requested alteration. For CreateTable, Columns lists
// every column of the new table; for AddColumn it holds exactly the column
// being added.
type SchemaChange struct {
	Kind      ChangeKind         `json:"kind" yaml:"kind"`
	TableName string             `json:"table" yaml:"table"`
	Columns   []ColumnDefinition `json:"columns" yaml:"columns"`
}

// Table is a snapshot of one table in a type model. Two snapshots of the
// same model are compared to derive SchemaChanges.
type Table struct {
	Name    string             `json:"name" yaml:"name"`
	Columns []ColumnDefinition `json:"columns" yaml:"columns"`
}
