package migrate

import (
	"strings"

	"github.com/roach88/momentum/internal/schema"
)

// ColumnTypeFor maps a field type to a column type for the dialect.
//
// The function is total: an unknown field type falls back to the dialect's
// text column rather than erroring. Lenient on purpose - a plugin-declared
// field kind the mapper has never heard of still gets a usable column, and
// text holds anything.
func ColumnTypeFor(t schema.FieldType, dialect Dialect) string {
	switch dialect {
	case DialectPostgres:
		return postgresColumnType(t)
	case DialectSQLite:
		return sqliteColumnType(t)
	default:
		return "TEXT"
	}
}

func postgresColumnType(t schema.FieldType) string {
	switch t {
	case schema.FieldText, schema.FieldRichText, schema.FieldSelect:
		return "TEXT"
	case schema.FieldNumber:
		return "NUMERIC"
	case schema.FieldDate:
		return "TIMESTAMPTZ"
	case schema.FieldCheckbox:
		return "BOOLEAN"
	case schema.FieldRelationship, schema.FieldUpload:
		// Fixed-width identifier column: UUIDs are 36 characters.
		return "VARCHAR(36)"
	case schema.FieldArray, schema.FieldGroup, schema.FieldBlocks, schema.FieldJSON:
		return "JSONB"
	default:
		return "TEXT"
	}
}

func sqliteColumnType(t schema.FieldType) string {
	switch t {
	case schema.FieldText, schema.FieldRichText, schema.FieldSelect, schema.FieldDate:
		return "TEXT"
	case schema.FieldNumber:
		return "REAL"
	case schema.FieldCheckbox:
		return "INTEGER"
	case schema.FieldRelationship, schema.FieldUpload:
		return "TEXT"
	case schema.FieldArray, schema.FieldGroup, schema.FieldBlocks, schema.FieldJSON:
		// SQLite stores JSON as text; json functions operate on it.
		return "TEXT"
	default:
		return "TEXT"
	}
}

// TableFor derives a declared table definition from a collection.
//
// Layout-only fields contribute nothing; group/array/blocks fields become a
// single JSON-capable column each (their children live inside the payload).
// The id column plus engine timestamps are always present.
func TableFor(col *schema.Collection, dialect Dialect) Table {
	name := TableName(col.Slug)

	table := Table{
		Name: name,
		Columns: []Column{
			{Name: "id", Type: idColumnType(dialect), NotNull: true},
		},
	}

	for _, f := range col.Fields {
		appendColumns(&table, f, dialect)
	}

	if col.Timestamps {
		ts := timestampColumnType(dialect)
		table.Columns = append(table.Columns,
			Column{Name: "created_at", Type: ts},
			Column{Name: "updated_at", Type: ts},
		)
	}

	for _, idx := range col.Indexes {
		cols := make([]string, len(idx.Fields))
		for i, f := range idx.Fields {
			cols[i] = columnName(f)
		}
		table.Indexes = append(table.Indexes, IndexDef{
			Name:    indexName(name, cols),
			Columns: cols,
			Unique:  idx.Unique,
		})
	}

	return table
}

func appendColumns(table *Table, f schema.Field, dialect Dialect) {
	if f.Type.LayoutOnly() {
		for _, child := range f.Fields {
			appendColumns(table, child, dialect)
		}
		return
	}
	table.Columns = append(table.Columns, Column{
		Name:    columnName(f.Name),
		Type:    ColumnTypeFor(f.Type, dialect),
		NotNull: f.Required,
	})
}

func idColumnType(dialect Dialect) string {
	if dialect == DialectPostgres {
		return "VARCHAR(36)"
	}
	return "TEXT"
}

func timestampColumnType(dialect Dialect) string {
	if dialect == DialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

// TableName converts a collection slug to a table name: kebab-case becomes
// snake_case.
func TableName(slug string) string {
	return strings.ReplaceAll(slug, "-", "_")
}

// columnName converts a camelCase field name to snake_case.
func columnName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func indexName(table string, cols []string) string {
	return "idx_" + table + "_" + strings.Join(cols, "_")
}
