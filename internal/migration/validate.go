package migration

import (
	"schemagen/internal/schema"
)

// The checks below run in a fixed order so the same input always reports
// the same error: empty names, then reserved words, then column types.

func requireTable(table string) error {
	if table == "" {
		return &ValidationError{Kind: MissingTableName}
	}
	return nil
}

func validateCreateTable(table string, cols []schema.ColumnDefinition) error {
	if err := requireTable(table); err != nil {
		return err
	}
	if len(cols) == 0 {
		return &ValidationError{Kind: EmptyColumns, Table: table}
	}
	for _, c := range cols {
		if c.Name == "" {
			return &ValidationError{Kind: EmptyColumnName, Table: table}
		}
	}
	if IsReserved(table) {
		return &ValidationError{Kind: ReservedKeyword, Table: table}
	}
	for _, c := range cols {
		if IsReserved(c.Name) {
			return &ValidationError{Kind: ReservedKeyword, Table: table, Column: c.Name}
		}
	}
	for _, c := range cols {
		if !c.Type.Supported() {
			return &ValidationError{Kind: UnsupportedColumnType, Table: table, Column: c.Name}
		}
	}
	return nil
}

func validateAddColumn(table string, col schema.ColumnDefinition) error {
	if err := requireTable(table); err != nil {
		return err
	}
	if col.Name == "" {
		return &ValidationError{Kind: EmptyColumnName, Table: table}
	}
	if IsReserved(table) {
		return &ValidationError{Kind: ReservedKeyword, Table: table}
	}
	if IsReserved(col.Name) {
		return &ValidationError{Kind: ReservedKeyword, Table: table, Column: col.Name}
	}
	if !col.Type.Supported() {
		return &ValidationError{Kind: UnsupportedColumnType, Table: table, Column: col.Name}
	}
	return nil
}

// Validate checks a change eagerly with the same rules the generated
// migration applies when its forward statement is rendered. For AddColumn
// only the first column is considered, matching Generate.
func Validate(c schema.SchemaChange) error {
	switch c.Kind {
	case schema.AddColumn:
		if err := requireTable(c.TableName); err != nil {
			return err
		}
		if len(c.Columns) == 0 {
			return &ValidationError{Kind: EmptyColumns, Table: c.TableName}
		}
		return validateAddColumn(c.TableName, c.Columns[0])
	default:
		return validateCreateTable(c.TableName, c.Columns)
	}
}
