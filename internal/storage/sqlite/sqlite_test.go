package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/momentum/internal/query"
	"github.com/roach88/momentum/internal/storage"
)

func openTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestCreateFindRoundTrip(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	doc := storage.Document{
		"id":        "p1",
		"title":     "hello",
		"views":     float64(3),
		"createdAt": "2026-01-01T00:00:00.000Z",
		"meta":      map[string]any{"tags": []any{"go"}},
	}
	created, err := a.Create(ctx, "posts", doc)
	require.NoError(t, err)
	assert.Equal(t, "hello", created["title"])

	found, err := a.FindByID(ctx, "posts", "p1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "hello", found["title"])
	assert.Equal(t, float64(3), found["views"])
	assert.Equal(t, []any{"go"}, found["meta"].(map[string]any)["tags"])
}

func TestCreateDuplicateIDFails(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	_, err := a.Create(ctx, "posts", storage.Document{"id": "p1"})
	require.NoError(t, err)
	_, err = a.Create(ctx, "posts", storage.Document{"id": "p1"})
	require.Error(t, err)

	// Same id in another collection is a different document.
	_, err = a.Create(ctx, "pages", storage.Document{"id": "p1"})
	assert.NoError(t, err)
}

func TestAbsenceIsNotAnError(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	doc, err := a.FindByID(ctx, "posts", "ghost")
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = a.Update(ctx, "posts", "ghost", storage.Document{"x": 1})
	require.NoError(t, err)
	assert.Nil(t, doc)

	existed, err := a.Delete(ctx, "posts", "ghost")
	require.NoError(t, err)
	assert.False(t, existed)

	doc, err = a.FindGlobal(ctx, "settings")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFindOrdersByCreatedAtThenID(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	seed := []storage.Document{
		{"id": "b", "createdAt": "2026-01-02T00:00:00.000Z"},
		{"id": "a", "createdAt": "2026-01-02T00:00:00.000Z"},
		{"id": "z", "createdAt": "2026-01-01T00:00:00.000Z"},
	}
	for _, doc := range seed {
		_, err := a.Create(ctx, "posts", doc)
		require.NoError(t, err)
	}

	docs, err := a.Find(ctx, "posts", nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "z", docs[0]["id"])
	assert.Equal(t, "a", docs[1]["id"])
	assert.Equal(t, "b", docs[2]["id"])
}

func TestFindFilterAgreesWithMemoryAdapter(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	_, err := a.Create(ctx, "posts", storage.Document{"id": "p1", "views": float64(5), "createdAt": "1"})
	require.NoError(t, err)
	_, err = a.Create(ctx, "posts", storage.Document{"id": "p2", "views": float64(15), "createdAt": "2"})
	require.NoError(t, err)

	docs, err := a.Find(ctx, "posts", query.Cmp{Field: "views", Op: query.OpGT, Value: 10})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p2", docs[0]["id"])
}

func TestUpdateMergesAndPreservesID(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	_, err := a.Create(ctx, "posts", storage.Document{"id": "p1", "title": "old", "views": float64(1)})
	require.NoError(t, err)

	updated, err := a.Update(ctx, "posts", "p1", storage.Document{"title": "new", "id": "hijack"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated["title"])
	assert.Equal(t, float64(1), updated["views"])
	assert.Equal(t, "p1", updated["id"])

	found, err := a.FindByID(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.Equal(t, "new", found["title"])
}

func TestDelete(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	_, err := a.Create(ctx, "posts", storage.Document{"id": "p1"})
	require.NoError(t, err)

	existed, err := a.Delete(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.True(t, existed)

	doc, err := a.FindByID(ctx, "posts", "p1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestGlobalsUpsert(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	g, err := a.UpdateGlobal(ctx, "settings", storage.Document{"siteName": "Momentum"})
	require.NoError(t, err)
	assert.Equal(t, "Momentum", g["siteName"])

	g, err = a.UpdateGlobal(ctx, "settings", storage.Document{"tagline": "fast"})
	require.NoError(t, err)
	assert.Equal(t, "Momentum", g["siteName"])
	assert.Equal(t, "fast", g["tagline"])

	g, err = a.FindGlobal(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, "fast", g["tagline"])
}
