package migration

import (
	"strings"

	"schemagen/internal/schema"
)

// FormatCreateTable renders a CREATE TABLE statement without keyword or
// type checks. Only the structural requirements are enforced: a table name
// and at least one column.
//
//	CREATE TABLE Users (id UUID, name TEXT);
func FormatCreateTable(table string, cols []schema.ColumnDefinition) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", &ValidationError{Kind: EmptyColumns, Table: table}
	}
	return formatCreateTable(table, cols), nil
}

// FormatAddColumn renders an ALTER TABLE ... ADD COLUMN statement without
// keyword or type checks.
func FormatAddColumn(table string, col schema.ColumnDefinition) (string, error) {
	if err := requireTable(table); err != nil {
		return "", err
	}
	if col.Name == "" {
		return "", &ValidationError{Kind: EmptyColumnName, Table: table}
	}
	return formatAddColumn(table, col), nil
}

func formatCreateTable(table string, cols []schema.ColumnDefinition) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(table)
	sb.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(c.Type.SQL())
	}
	sb.WriteString(");")
	return sb.String()
}

func formatAddColumn(table string, col schema.ColumnDefinition) string {
	return "ALTER TABLE " + table + " ADD COLUMN " + col.Name + " " + col.Type.SQL() + ";"
}

func formatDropTable(table string) string {
	return "DROP TABLE " + table + ";"
}

func formatDropColumn(table, column string) string {
	return "ALTER TABLE " + table + " DROP COLUMN " + column + ";"
}
