// Package sqlite is the reference SQL storage adapter.
//
// Documents are stored as JSON payloads keyed by (collection, id). SQLite
// runs in WAL mode with a single-writer connection pool, which serializes
// writes and keeps multi-statement operations (publish-and-demote) free of
// write conflicts without explicit locking in the engine.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/momentum/internal/query"
	"github.com/roach88/momentum/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Adapter implements storage.Adapter over a SQLite database.
type Adapter struct {
	db *sql.DB
}

var _ storage.Adapter = (*Adapter)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the store schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Adapter{db: db}, nil
}

// Close closes the database connection.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Used by the migration generator's schema introspection.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Find returns matching documents ordered by created_at then id.
// Filtering happens after JSON decode with the same predicate evaluation the
// memory adapter uses, so both adapters agree on match semantics.
func (a *Adapter) Find(ctx context.Context, collection string, where query.Where) ([]storage.Document, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT data FROM documents
		WHERE collection = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("find in %q: %w", collection, err)
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("find in %q: %w", collection, err)
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("find in %q: %w", collection, err)
		}
		if query.Matches(where, doc) {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find in %q: %w", collection, err)
	}
	return docs, nil
}

func (a *Adapter) FindByID(ctx context.Context, collection, id string) (storage.Document, error) {
	var raw string
	err := a.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("findById %q/%q: %w", collection, id, err)
	}
	return decodeDoc(raw)
}

func (a *Adapter) Create(ctx context.Context, collection string, data storage.Document) (storage.Document, error) {
	id, ok := data["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("create in %q: document has no id", collection)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("create in %q: %w", collection, err)
	}
	createdAt, _ := data["createdAt"].(string)

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at)
		VALUES (?, ?, ?, ?)
	`, collection, id, string(raw), createdAt)
	if err != nil {
		return nil, fmt.Errorf("create in %q: %w", collection, err)
	}
	return decodeDoc(string(raw))
}

func (a *Adapter) Update(ctx context.Context, collection, id string, data storage.Document) (storage.Document, error) {
	existing, err := a.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	for k, v := range data {
		if k == "id" {
			continue
		}
		existing[k] = v
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("update %q/%q: %w", collection, id, err)
	}

	_, err = a.db.ExecContext(ctx, `
		UPDATE documents SET data = ? WHERE collection = ? AND id = ?
	`, string(raw), collection, id)
	if err != nil {
		return nil, fmt.Errorf("update %q/%q: %w", collection, id, err)
	}
	return existing, nil
}

func (a *Adapter) Delete(ctx context.Context, collection, id string) (bool, error) {
	res, err := a.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return false, fmt.Errorf("delete %q/%q: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %q/%q: %w", collection, id, err)
	}
	return n > 0, nil
}

func (a *Adapter) FindGlobal(ctx context.Context, slug string) (storage.Document, error) {
	var raw string
	err := a.db.QueryRowContext(ctx, `
		SELECT data FROM globals WHERE slug = ?
	`, slug).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("findGlobal %q: %w", slug, err)
	}
	return decodeDoc(raw)
}

func (a *Adapter) UpdateGlobal(ctx context.Context, slug string, data storage.Document) (storage.Document, error) {
	existing, err := a.FindGlobal(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		existing = storage.Document{}
	}
	for k, v := range data {
		existing[k] = v
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("updateGlobal %q: %w", slug, err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO globals (slug, data) VALUES (?, ?)
		ON CONFLICT(slug) DO UPDATE SET data = excluded.data
	`, slug, string(raw))
	if err != nil {
		return nil, fmt.Errorf("updateGlobal %q: %w", slug, err)
	}
	return existing, nil
}

func decodeDoc(raw string) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
