package migrate

import "fmt"

// Diff compares declared tables against the live schema and returns the
// ordered operations that bring the live schema into agreement.
//
// Operation order per table: createTable, addColumn, alterColumnType,
// dropColumn, addIndex. Tables are processed in declaration order, so the
// output (and the generated migration) is deterministic for a given input.
//
// Type comparison goes through NormalizeColumnType first: a live
// "character varying(36)" column never diffs against a declared
// "VARCHAR(36)".
func Diff(declared []Table, live LiveSchema, dialect Dialect) SchemaDiff {
	var diff SchemaDiff

	add := func(op Operation) {
		diff.Operations = append(diff.Operations, op)
		diff.Summary = append(diff.Summary, op.Describe())
	}

	for _, want := range declared {
		got, exists := live.Table(want.Name)
		if !exists {
			def := want
			add(Operation{Kind: OpCreateTable, Table: want.Name, TableDef: &def})
			for i := range want.Indexes {
				idx := want.Indexes[i]
				add(Operation{Kind: OpAddIndex, Table: want.Name, Index: &idx})
			}
			continue
		}

		for i := range want.Columns {
			col := want.Columns[i]
			liveCol, has := got.Column(col.Name)
			if !has {
				add(Operation{Kind: OpAddColumn, Table: want.Name, Column: &col})
				continue
			}
			if !AreTypesCompatible(liveCol.Type, col.Type, dialect) {
				add(Operation{
					Kind:     OpAlterColumnType,
					Table:    want.Name,
					Column:   &col,
					FromType: liveCol.Type,
				})
			}
		}

		for i := range got.Columns {
			liveCol := got.Columns[i]
			if _, declared := want.Column(liveCol.Name); !declared {
				add(Operation{
					Kind:       OpDropColumn,
					Table:      want.Name,
					ColumnName: liveCol.Name,
					// Keep the old definition so the reverse
					// operation can re-add it.
					Column: &liveCol,
				})
			}
		}

		for i := range want.Indexes {
			idx := want.Indexes[i]
			if !hasIndex(got, idx.Name) {
				add(Operation{Kind: OpAddIndex, Table: want.Name, Index: &idx})
			}
		}
	}

	return diff
}

// SummaryText renders the diff for humans, one operation per line.
func (d SchemaDiff) SummaryText() string {
	if d.Empty() {
		return "schema is up to date; no operations\n"
	}
	out := fmt.Sprintf("%d operation(s):\n", len(d.Operations))
	for _, line := range d.Summary {
		out += "  " + line + "\n"
	}
	return out
}

func hasIndex(t Table, name string) bool {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return true
		}
	}
	return false
}
