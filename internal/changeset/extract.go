package changeset

import "schemagen/internal/schema"

// Extract compares two snapshots of a type model and returns the changes
// that bring previous up to current.
//
// A table present only in current yields one CreateTable with its columns
// in declared order. A table present in both yields one AddColumn per
// column that previous lacks, in declared order. A table or column repeated
// in current is only reported once. Output follows the table
// order of current. Tables and columns that were removed produce nothing;
// drops are never generated. Names match exactly.
func Extract(previous, current []schema.Table) []schema.SchemaChange {
	known := make(map[string]map[string]struct{}, len(previous))
	for _, t := range previous {
		cols, ok := known[t.Name]
		if !ok {
			cols = make(map[string]struct{}, len(t.Columns))
			known[t.Name] = cols
		}
		for _, c := range t.Columns {
			cols[c.Name] = struct{}{}
		}
	}

	var out []schema.SchemaChange
	for _, t := range current {
		cols, existed := known[t.Name]
		if !existed {
			out = append(out, schema.SchemaChange{
				Kind:      schema.CreateTable,
				TableName: t.Name,
				Columns:   append([]schema.ColumnDefinition(nil), t.Columns...),
			})
			cols = make(map[string]struct{}, len(t.Columns))
			for _, c := range t.Columns {
				cols[c.Name] = struct{}{}
			}
			known[t.Name] = cols
			continue
		}
		for _, c := range t.Columns {
			if _, ok := cols[c.Name]; ok {
				continue
			}
			cols[c.Name] = struct{}{}
			out = append(out, schema.SchemaChange{
				Kind:      schema.AddColumn,
				TableName: t.Name,
				Columns:   []schema.ColumnDefinition{c},
			})
		}
	}
	return out
}
