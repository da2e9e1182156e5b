package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/momentum/internal/schema"
)

func TestColumnTypeFor(t *testing.T) {
	tests := []struct {
		fieldType schema.FieldType
		dialect   Dialect
		expected  string
	}{
		{schema.FieldText, DialectPostgres, "TEXT"},
		{schema.FieldNumber, DialectPostgres, "NUMERIC"},
		{schema.FieldDate, DialectPostgres, "TIMESTAMPTZ"},
		{schema.FieldCheckbox, DialectPostgres, "BOOLEAN"},
		{schema.FieldRelationship, DialectPostgres, "VARCHAR(36)"},
		{schema.FieldGroup, DialectPostgres, "JSONB"},
		{schema.FieldNumber, DialectSQLite, "REAL"},
		{schema.FieldCheckbox, DialectSQLite, "INTEGER"},
		{schema.FieldGroup, DialectSQLite, "TEXT"},
		// Unknown field types degrade to text rather than failing.
		{schema.FieldType("hologram"), DialectPostgres, "TEXT"},
		{schema.FieldType("hologram"), DialectSQLite, "TEXT"},
	}

	for _, tt := range tests {
		t.Run(string(tt.fieldType)+"/"+string(tt.dialect), func(t *testing.T) {
			assert.Equal(t, tt.expected, ColumnTypeFor(tt.fieldType, tt.dialect))
		})
	}
}

func TestTableFor(t *testing.T) {
	col := schema.NewCollection("blog-posts",
		schema.Field{Name: "title", Type: schema.FieldText, Required: true},
		schema.Field{Name: "viewCount", Type: schema.FieldNumber},
		schema.Field{Type: schema.FieldRow, Fields: []schema.Field{
			{Name: "author", Type: schema.FieldRelationship, RelationTo: "users"},
		}},
		schema.Field{Name: "meta", Type: schema.FieldGroup, Fields: []schema.Field{
			{Name: "description", Type: schema.FieldText},
		}},
	)
	col.Indexes = []schema.Index{{Fields: []string{"title"}, Unique: true}}

	table := TableFor(col, DialectPostgres)

	assert.Equal(t, "blog_posts", table.Name)

	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	// Layout rows flatten, group fields collapse to one JSON column, and
	// timestamps are always last.
	assert.Equal(t, []string{"id", "title", "view_count", "author", "meta", "created_at", "updated_at"}, names)

	title, ok := table.Column("title")
	require.True(t, ok)
	assert.True(t, title.NotNull)

	meta, ok := table.Column("meta")
	require.True(t, ok)
	assert.Equal(t, "JSONB", meta.Type)

	require.Len(t, table.Indexes, 1)
	assert.Equal(t, "idx_blog_posts_title", table.Indexes[0].Name)
	assert.True(t, table.Indexes[0].Unique)
}

func TestTableForWithoutTimestamps(t *testing.T) {
	col := schema.NewCollection("counters", schema.Field{Name: "value", Type: schema.FieldNumber})
	col.Timestamps = false

	table := TableFor(col, DialectSQLite)

	_, hasCreated := table.Column("created_at")
	assert.False(t, hasCreated)
	assert.Len(t, table.Columns, 2)
}

func TestNameConversion(t *testing.T) {
	assert.Equal(t, "blog_posts", TableName("blog-posts"))
	assert.Equal(t, "posts", TableName("posts"))
	assert.Equal(t, "view_count", columnName("viewCount"))
	assert.Equal(t, "title", columnName("title"))
}
