package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// IntrospectSQLite reads the live schema of a SQLite database: every
// user table with its columns and indexes. Internal sqlite_* tables are
// skipped.
func IntrospectSQLite(ctx context.Context, db *sql.DB) (LiveSchema, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return LiveSchema{}, fmt.Errorf("introspect: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return LiveSchema{}, fmt.Errorf("introspect: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return LiveSchema{}, fmt.Errorf("introspect: %w", err)
	}

	var schema LiveSchema
	for _, name := range names {
		table, err := introspectTable(ctx, db, name)
		if err != nil {
			return LiveSchema{}, err
		}
		schema.Tables = append(schema.Tables, table)
	}
	return schema, nil
}

func introspectTable(ctx context.Context, db *sql.DB, name string) (Table, error) {
	table := Table{Name: name}

	// PRAGMA table_info does not support placeholders; the name comes from
	// sqlite_master, not from user input.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return Table{}, fmt.Errorf("introspect %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			colName    string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
			return Table{}, fmt.Errorf("introspect %s: %w", name, err)
		}
		table.Columns = append(table.Columns, Column{
			Name:    colName,
			Type:    colType,
			NotNull: notNull == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("introspect %s: %w", name, err)
	}

	idxRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", name))
	if err != nil {
		return Table{}, fmt.Errorf("introspect %s indexes: %w", name, err)
	}
	defer idxRows.Close()

	for idxRows.Next() {
		var (
			seq     int
			idxName string
			unique  int
			origin  string
			partial int
		)
		if err := idxRows.Scan(&seq, &idxName, &unique, &origin, &partial); err != nil {
			return Table{}, fmt.Errorf("introspect %s indexes: %w", name, err)
		}
		// Skip auto-created indexes backing constraints.
		if strings.HasPrefix(idxName, "sqlite_autoindex_") {
			continue
		}
		table.Indexes = append(table.Indexes, IndexDef{
			Name:   idxName,
			Unique: unique == 1,
		})
	}
	if err := idxRows.Err(); err != nil {
		return Table{}, fmt.Errorf("introspect %s indexes: %w", name, err)
	}

	return table, nil
}

// SQLExec adapts a *sql.DB into the ExecContext a generated migration runs
// against.
type SQLExec struct {
	Ctx context.Context
	DB  *sql.DB
}

// SQL executes one statement.
func (e SQLExec) SQL(statement string) error {
	_, err := e.DB.ExecContext(e.Ctx, statement)
	if err != nil {
		return fmt.Errorf("exec %q: %w", firstLine(statement), err)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
