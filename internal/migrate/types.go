package migrate

import "fmt"

// Dialect selects the SQL flavor for column mapping and statement
// generation.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Valid reports whether the dialect is supported.
func (d Dialect) Valid() bool {
	return d == DialectPostgres || d == DialectSQLite
}

// Column is one column of a declared or live table.
type Column struct {
	Name    string
	Type    string
	NotNull bool
}

// IndexDef is one declared index.
type IndexDef struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is a full table definition, declared or introspected.
type Table struct {
	Name    string
	Columns []Column
	Indexes []IndexDef
}

// Column returns the named column, if present.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// LiveSchema is the introspected state of the target database.
type LiveSchema struct {
	Tables []Table
}

// Table returns the named live table, if present.
func (s LiveSchema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// OpKind names one atomic schema change.
type OpKind string

const (
	OpCreateTable     OpKind = "createTable"
	OpDropTable       OpKind = "dropTable"
	OpAddColumn       OpKind = "addColumn"
	OpDropColumn      OpKind = "dropColumn"
	OpAlterColumnType OpKind = "alterColumnType"
	OpAddIndex        OpKind = "addIndex"
	OpDropIndex       OpKind = "dropIndex"
)

// Operation is one dialect-agnostic schema change. Dialect-specific SQL is
// generated downstream from these.
type Operation struct {
	Kind  OpKind
	Table string

	// TableDef is set for createTable (and carries the definition a
	// reversed dropTable would need to recreate).
	TableDef *Table

	// Column is set for addColumn and alterColumnType (the target shape).
	Column *Column

	// ColumnName is set for dropColumn.
	ColumnName string

	// FromType is set for alterColumnType: the live type being replaced.
	FromType string

	// Index is set for addIndex / dropIndex.
	Index *IndexDef
}

// Describe renders the operation for summaries and Meta.Operations.
func (o Operation) Describe() string {
	switch o.Kind {
	case OpCreateTable:
		return fmt.Sprintf("createTable %s", o.Table)
	case OpDropTable:
		return fmt.Sprintf("dropTable %s", o.Table)
	case OpAddColumn:
		return fmt.Sprintf("addColumn %s.%s %s", o.Table, o.Column.Name, o.Column.Type)
	case OpDropColumn:
		return fmt.Sprintf("dropColumn %s.%s", o.Table, o.ColumnName)
	case OpAlterColumnType:
		return fmt.Sprintf("alterColumnType %s.%s %s -> %s", o.Table, o.Column.Name, o.FromType, o.Column.Type)
	case OpAddIndex:
		return fmt.Sprintf("addIndex %s on %s", o.Index.Name, o.Table)
	case OpDropIndex:
		return fmt.Sprintf("dropIndex %s on %s", o.Index.Name, o.Table)
	default:
		return string(o.Kind)
	}
}

// Reverse returns the operation that undoes this one.
func (o Operation) Reverse() Operation {
	switch o.Kind {
	case OpCreateTable:
		return Operation{Kind: OpDropTable, Table: o.Table, TableDef: o.TableDef}
	case OpDropTable:
		return Operation{Kind: OpCreateTable, Table: o.Table, TableDef: o.TableDef}
	case OpAddColumn:
		return Operation{Kind: OpDropColumn, Table: o.Table, ColumnName: o.Column.Name}
	case OpDropColumn:
		// Reversing a drop needs the old definition; callers populate
		// Column from the live schema when building the diff.
		return Operation{Kind: OpAddColumn, Table: o.Table, Column: o.Column}
	case OpAlterColumnType:
		reversed := *o.Column
		reversed.Type = o.FromType
		return Operation{
			Kind:     OpAlterColumnType,
			Table:    o.Table,
			Column:   &reversed,
			FromType: o.Column.Type,
		}
	case OpAddIndex:
		return Operation{Kind: OpDropIndex, Table: o.Table, Index: o.Index}
	case OpDropIndex:
		return Operation{Kind: OpAddIndex, Table: o.Table, Index: o.Index}
	default:
		return o
	}
}

// SchemaDiff is the ordered result of comparing declared tables to the live
// schema.
type SchemaDiff struct {
	Operations []Operation
	Summary    []string
}

// Empty reports whether the schemas already agree.
func (d SchemaDiff) Empty() bool {
	return len(d.Operations) == 0
}

// Meta is the generated migration's descriptor.
type Meta struct {
	Name        string
	Description string
	Operations  []string
}

// ExecContext executes one SQL statement at a time during Up/Down.
type ExecContext interface {
	SQL(statement string) error
}

// Migration is the runtime shape a generated file exports.
type Migration struct {
	Meta Meta
	Up   func(ctx ExecContext) error
	Down func(ctx ExecContext) error
}
