// Package dialect renders migrations for a concrete database engine.
//
// The migration package produces dialect-neutral statements with unquoted
// identifiers. A Dialect re-renders the same migration with the engine's
// identifier quoting and column types so it can be executed:
//
//   - ansi:     the migration's own statements, unchanged
//   - postgres: "ident", UUID/TEXT/INTEGER
//   - sqlite:   "ident", TEXT/TEXT/INTEGER
//   - mssql:    [ident], UNIQUEIDENTIFIER/NVARCHAR(MAX)/INT, ADD without COLUMN
//   - mysql:    `ident`, CHAR(36)/TEXT/INT
//
// Dotted table names ("schema.table") are quoted per segment; a name with an
// empty segment is rejected with ErrEmptyNameSegment.
package dialect

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"schemagen/internal/migration"
	"schemagen/internal/schema"
)

// Dialect renders the four statement shapes a migration can produce.
type Dialect interface {
	Name() string
	QuoteIdent(id string) string
	ColumnType(t schema.ColumnType) string
	CreateTable(table string, cols []schema.ColumnDefinition) string
	DropTable(table string) string
	AddColumn(table string, col schema.ColumnDefinition) string
	DropColumn(table, column string) string
}

// ErrEmptyNameSegment is returned by Render when a dotted table name has an
// empty or blank segment, e.g. "public..users" or "Users.", which cannot be
// quoted into a valid identifier.
var ErrEmptyNameSegment = errors.New("dialect: empty segment in table name")

// Render validates m through its own Up or Down and then renders the
// statement for d. Validation errors are the migration package's typed
// errors, unchanged. The ansi dialect returns the migration's own statement
// byte for byte.
func Render(d Dialect, m migration.Migration, up bool) (string, error) {
	var (
		stmt string
		err  error
	)
	if up {
		stmt, err = m.Up()
	} else {
		stmt, err = m.Down()
	}
	if err != nil {
		return "", err
	}
	if p, ok := d.(interface{ passthrough() bool }); ok && p.passthrough() {
		return stmt, nil
	}

	switch mm := m.(type) {
	case migration.CreateTableMigration:
		if err := checkSegments(d, mm.TableName); err != nil {
			return "", err
		}
		if up {
			return d.CreateTable(mm.TableName, mm.Columns), nil
		}
		return d.DropTable(mm.TableName), nil
	case migration.AddColumnMigration:
		if err := checkSegments(d, mm.TableName); err != nil {
			return "", err
		}
		if up {
			return d.AddColumn(mm.TableName, mm.Column), nil
		}
		return d.DropColumn(mm.TableName, mm.Column.Name), nil
	default:
		return "", fmt.Errorf("dialect %s: unsupported migration %T", d.Name(), m)
	}
}

func checkSegments(d Dialect, table string) error {
	for _, seg := range strings.Split(table, ".") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("dialect %s: table %q: %w", d.Name(), table, ErrEmptyNameSegment)
		}
	}
	return nil
}

// RenderFunc adapts d for migration.RenderAllWith.
func RenderFunc(d Dialect) migration.RenderFunc {
	return func(m migration.Migration, up bool) (string, error) {
		return Render(d, m, up)
	}
}

var registry = map[string]Dialect{}

func register(d Dialect) {
	registry[d.Name()] = d
}

// Lookup returns the dialect registered under name. Names are
// case-insensitive; "postgresql" is accepted for postgres and "sqlserver"
// for mssql.
func Lookup(name string) (Dialect, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "sql":
		n = "ansi"
	case "postgresql", "pg":
		n = "postgres"
	case "sqlserver":
		n = "mssql"
	}
	d, ok := registry[n]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names lists the registered dialects in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
