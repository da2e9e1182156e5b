package migrate

import (
	"fmt"
	"strings"
)

// Statement is one emitted step of a migration: either a SQL statement or,
// where the dialect cannot express the operation, an explanatory comment.
type Statement struct {
	SQL     string
	Comment string
}

// Statements renders the operation as dialect-specific SQL.
//
// Operations a dialect cannot express degrade to a comment instead of
// failing: the generated migration stays runnable and the gap is visible to
// the reviewer.
func (o Operation) Statements(dialect Dialect) []Statement {
	switch o.Kind {
	case OpCreateTable:
		return []Statement{{SQL: createTableSQL(*o.TableDef)}}
	case OpDropTable:
		return []Statement{{SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s", o.Table)}}
	case OpAddColumn:
		return []Statement{{SQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", o.Table, columnSQL(*o.Column))}}
	case OpDropColumn:
		return []Statement{{SQL: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", o.Table, o.ColumnName)}}
	case OpAlterColumnType:
		if dialect == DialectSQLite {
			return []Statement{{Comment: fmt.Sprintf(
				"sqlite cannot alter column types in place: %s.%s stays %s (wanted %s); rebuild the table to convert",
				o.Table, o.Column.Name, o.FromType, o.Column.Type)}}
		}
		return []Statement{{SQL: fmt.Sprintf(
			"ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			o.Table, o.Column.Name, o.Column.Type)}}
	case OpAddIndex:
		unique := ""
		if o.Index.Unique {
			unique = "UNIQUE "
		}
		return []Statement{{SQL: fmt.Sprintf(
			"CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, o.Index.Name, o.Table, strings.Join(o.Index.Columns, ", "))}}
	case OpDropIndex:
		return []Statement{{SQL: fmt.Sprintf("DROP INDEX IF EXISTS %s", o.Index.Name)}}
	default:
		return nil
	}
}

func createTableSQL(t Table) string {
	parts := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		parts = append(parts, "  "+columnSQL(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", t.Name, strings.Join(parts, ",\n"))
}

func columnSQL(c Column) string {
	s := c.Name + " " + c.Type
	if c.Name == "id" {
		return s + " PRIMARY KEY"
	}
	if c.NotNull {
		s += " NOT NULL"
	}
	return s
}
