// Package migration turns schema changes into reversible migrations and
// renders their forward ("up") and reverse ("down") statements.
//
// Generate never fails: every change becomes a migration, and validation is
// deferred until a statement is rendered. A caller can therefore build a
// whole batch, render each item, and report every invalid change instead of
// stopping at the first one.
//
// Rendering is pure. Up and Down return the same output for the same
// migration on every call and are safe to call from multiple goroutines.
package migration

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"schemagen/internal/schema"
)

// Migration is a reversible schema change. CreateTableMigration and
// AddColumnMigration are its only implementations.
type Migration interface {
	// Up renders the forward statement.
	Up() (string, error)
	// Down renders the statement that reverts Up.
	Down() (string, error)
	// Name is a CamelCase label such as "CreateUsersTable", suitable for
	// file names.
	Name() string

	sealed()
}

// CreateTableMigration creates a table with the given columns.
type CreateTableMigration struct {
	TableName string
	Columns   []schema.ColumnDefinition
}

var _ Migration = CreateTableMigration{}

func (CreateTableMigration) sealed() {}

// Up renders CREATE TABLE {table} ({col} {TYPE}, ...);
func (m CreateTableMigration) Up() (string, error) {
	if err := validateCreateTable(m.TableName, m.Columns); err != nil {
		return "", err
	}
	return formatCreateTable(m.TableName, m.Columns), nil
}

// Down renders DROP TABLE {table}; Only the table name is checked: the
// reverse statement declares no columns or types.
func (m CreateTableMigration) Down() (string, error) {
	if err := requireTable(m.TableName); err != nil {
		return "", err
	}
	return formatDropTable(m.TableName), nil
}

func (m CreateTableMigration) Name() string {
	return "Create" + camel(m.TableName) + "Table"
}

// AddColumnMigration adds a single column to an existing table.
type AddColumnMigration struct {
	TableName string
	Column    schema.ColumnDefinition

	// noColumn is set by Generate when the source change carried no column.
	noColumn bool
}

var _ Migration = AddColumnMigration{}

func (AddColumnMigration) sealed() {}

// Up renders ALTER TABLE {table} ADD COLUMN {col} {TYPE};
func (m AddColumnMigration) Up() (string, error) {
	if err := m.checkColumn(); err != nil {
		return "", err
	}
	if err := validateAddColumn(m.TableName, m.Column); err != nil {
		return "", err
	}
	return formatAddColumn(m.TableName, m.Column), nil
}

// Down renders ALTER TABLE {table} DROP COLUMN {col}; Reserved words and
// types are not checked on this path.
func (m AddColumnMigration) Down() (string, error) {
	if err := m.checkColumn(); err != nil {
		return "", err
	}
	if m.Column.Name == "" {
		return "", &ValidationError{Kind: EmptyColumnName, Table: m.TableName}
	}
	return formatDropColumn(m.TableName, m.Column.Name), nil
}

func (m AddColumnMigration) checkColumn() error {
	if err := requireTable(m.TableName); err != nil {
		return err
	}
	if m.noColumn {
		return &ValidationError{Kind: EmptyColumns, Table: m.TableName}
	}
	return nil
}

func (m AddColumnMigration) Name() string {
	return "Add" + camel(m.Column.Name) + "To" + camel(m.TableName)
}

// Generate maps each change to a migration, preserving order. It performs
// no validation.
func Generate(changes []schema.SchemaChange) []Migration {
	out := make([]Migration, 0, len(changes))
	for _, c := range changes {
		out = append(out, fromChange(c))
	}
	return out
}

// ChangeKindOf reports which change kind produced m.
func ChangeKindOf(m Migration) schema.ChangeKind {
	if _, ok := m.(AddColumnMigration); ok {
		return schema.AddColumn
	}
	return schema.CreateTable
}

func fromChange(c schema.SchemaChange) Migration {
	switch c.Kind {
	case schema.AddColumn:
		if len(c.Columns) == 0 {
			return AddColumnMigration{TableName: c.TableName, noColumn: true}
		}
		return AddColumnMigration{TableName: c.TableName, Column: c.Columns[0]}
	default:
		return CreateTableMigration{TableName: c.TableName, Columns: c.Columns}
	}
}

// camel turns "profile_picture" into "ProfilePicture". Characters other than
// letters and digits act as word separators and are dropped.
func camel(s string) string {
	var sb strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		r, size := utf8.DecodeRuneInString(word)
		sb.WriteRune(unicode.ToUpper(r))
		sb.WriteString(word[size:])
	}
	return sb.String()
}
