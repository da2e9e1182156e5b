package migrate

import (
	"fmt"
	"strconv"
	"strings"
)

// FileOptions names the migration being generated.
type FileOptions struct {
	Name        string
	Description string
	Dialect     Dialect
}

// GenerateMigrationFile renders a diff as a standalone Go migration source
// file exporting a single Migration value.
//
// Up executes each operation's SQL in diff order. Down executes the reverse
// of each operation in reverse order, so a migration always unwinds to its
// starting schema: diff [createTable, addColumn] yields a Down of
// [dropColumn, dropTable].
//
// An empty diff still produces a valid, no-op file: recording "nothing to
// do" as a migration keeps migration numbering linear across environments.
func GenerateMigrationFile(diff SchemaDiff, opts FileOptions) (string, error) {
	if opts.Name == "" {
		return "", fmt.Errorf("migration name is required")
	}
	if !opts.Dialect.Valid() {
		return "", fmt.Errorf("unknown dialect %q", opts.Dialect)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "// Code generated for the %s dialect; review before running.\n\n", opts.Dialect)
	b.WriteString("package migrations\n\n")
	b.WriteString("import \"github.com/roach88/momentum/internal/migrate\"\n\n")

	fmt.Fprintf(&b, "// %s is reversible: Down undoes Up operation by operation, in reverse.\n", exportName(opts.Name))
	fmt.Fprintf(&b, "var %s = migrate.Migration{\n", exportName(opts.Name))

	b.WriteString("\tMeta: migrate.Meta{\n")
	fmt.Fprintf(&b, "\t\tName:        %s,\n", strconv.Quote(opts.Name))
	if opts.Description != "" {
		fmt.Fprintf(&b, "\t\tDescription: %s,\n", strconv.Quote(opts.Description))
	}
	b.WriteString("\t\tOperations: []string{\n")
	for _, op := range diff.Operations {
		fmt.Fprintf(&b, "\t\t\t%s,\n", strconv.Quote(op.Describe()))
	}
	b.WriteString("\t\t},\n")
	b.WriteString("\t},\n")

	writeDirection(&b, "Up", upStatements(diff, opts.Dialect))

	var down []Statement
	for i := len(diff.Operations) - 1; i >= 0; i-- {
		down = append(down, diff.Operations[i].Reverse().Statements(opts.Dialect)...)
	}
	writeDirection(&b, "Down", down)

	b.WriteString("}\n")
	return b.String(), nil
}

func upStatements(diff SchemaDiff, dialect Dialect) []Statement {
	var out []Statement
	for _, op := range diff.Operations {
		out = append(out, op.Statements(dialect)...)
	}
	return out
}

func writeDirection(b *strings.Builder, name string, stmts []Statement) {
	fmt.Fprintf(b, "\t%s: func(ctx migrate.ExecContext) error {\n", name)
	if len(stmts) == 0 {
		b.WriteString("\t\t// No operations.\n")
	}
	for _, stmt := range stmts {
		if stmt.Comment != "" {
			fmt.Fprintf(b, "\t\t// %s\n", stmt.Comment)
			continue
		}
		fmt.Fprintf(b, "\t\tif err := ctx.SQL(%s); err != nil {\n", quoteSQL(stmt.SQL))
		b.WriteString("\t\t\treturn err\n")
		b.WriteString("\t\t}\n")
	}
	b.WriteString("\t\treturn nil\n")
	b.WriteString("\t},\n")
}

// quoteSQL prefers raw string literals so multi-line DDL stays readable in
// the generated file.
func quoteSQL(sql string) string {
	if !strings.Contains(sql, "`") {
		return "`" + sql + "`"
	}
	return strconv.Quote(sql)
}

// exportName converts a migration name like "add-posts" or "add_posts" to
// an exported Go identifier ("AddPosts").
func exportName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '-' || r == '_' || r == ' ' || r == '.':
			upper = true
		case upper:
			b.WriteRune(toUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Migration"
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
