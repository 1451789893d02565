package dialect

import (
	"strings"

	"schemagen/internal/schema"
)

// sqlDialect is the shared implementation; the engines differ only in
// quoting, type names, and the ADD COLUMN keyword.
type sqlDialect struct {
	name      string
	quote     func(string) string
	types     map[schema.ColumnType]string
	addColumn string

	// neutral dialects emit identifiers exactly as given.
	neutral bool
}

func init() {
	register(&sqlDialect{
		name:      "ansi",
		quote:     func(id string) string { return id },
		types:     map[schema.ColumnType]string{schema.UUID: "UUID", schema.Text: "TEXT", schema.Integer: "INTEGER"},
		addColumn: "ADD COLUMN",
		neutral:   true,
	})
	register(&sqlDialect{
		name:      "postgres",
		quote:     doubleQuote,
		types:     map[schema.ColumnType]string{schema.UUID: "UUID", schema.Text: "TEXT", schema.Integer: "INTEGER"},
		addColumn: "ADD COLUMN",
	})
	// SQLite has no UUID type; values are stored as their text form.
	register(&sqlDialect{
		name:      "sqlite",
		quote:     doubleQuote,
		types:     map[schema.ColumnType]string{schema.UUID: "TEXT", schema.Text: "TEXT", schema.Integer: "INTEGER"},
		addColumn: "ADD COLUMN",
	})
	// T-SQL uses ALTER TABLE t ADD c TYPE.
	register(&sqlDialect{
		name:      "mssql",
		quote:     bracketQuote,
		types:     map[schema.ColumnType]string{schema.UUID: "UNIQUEIDENTIFIER", schema.Text: "NVARCHAR(MAX)", schema.Integer: "INT"},
		addColumn: "ADD",
	})
	register(&sqlDialect{
		name:      "mysql",
		quote:     backtickQuote,
		types:     map[schema.ColumnType]string{schema.UUID: "CHAR(36)", schema.Text: "TEXT", schema.Integer: "INT"},
		addColumn: "ADD COLUMN",
	})
}

func (d *sqlDialect) Name() string { return d.name }

func (d *sqlDialect) passthrough() bool { return d.neutral }

func (d *sqlDialect) QuoteIdent(id string) string { return d.quote(id) }

// ColumnType falls back to the neutral literal for kinds the dialect does
// not map; Render never reaches that path for Unsupported.
func (d *sqlDialect) ColumnType(t schema.ColumnType) string {
	if s, ok := d.types[t]; ok {
		return s
	}
	return t.SQL()
}

func (d *sqlDialect) CreateTable(table string, cols []schema.ColumnDefinition) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(d.quoteFQN(table))
	sb.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.quote(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(d.ColumnType(c.Type))
	}
	sb.WriteString(");")
	return sb.String()
}

func (d *sqlDialect) DropTable(table string) string {
	return "DROP TABLE " + d.quoteFQN(table) + ";"
}

func (d *sqlDialect) AddColumn(table string, col schema.ColumnDefinition) string {
	return "ALTER TABLE " + d.quoteFQN(table) + " " + d.addColumn + " " +
		d.quote(col.Name) + " " + d.ColumnType(col.Type) + ";"
}

func (d *sqlDialect) DropColumn(table, column string) string {
	return "ALTER TABLE " + d.quoteFQN(table) + " DROP COLUMN " + d.quote(column) + ";"
}

// quoteFQN quotes each dotted segment with surrounding blanks removed:
//
//	"dbo.Users" -> [dbo].[Users]
//
// Render rejects names with empty segments before they get here.
func (d *sqlDialect) quoteFQN(fqn string) string {
	if d.neutral {
		return fqn
	}
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = d.quote(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

func doubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

//	weird]id -> [weird]]id]
func bracketQuote(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func backtickQuote(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}
