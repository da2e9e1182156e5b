package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/storage"
)

func testTracker(t *testing.T) *Tracker {
	t.Helper()
	return NewTracker(storage.NewMemory(),
		WithClock(engine.NewFixedClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), time.Minute)),
		WithIDGenerator(engine.NewFixedIDGenerator("rec-00", "rec-01", "rec-02", "rec-03")),
	)
}

func TestTrackerFindAbsent(t *testing.T) {
	tr := testTracker(t)

	rec, err := tr.FindBySeedID(context.Background(), "never-ran")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestTrackerCreateAndFind(t *testing.T) {
	tr := testTracker(t)
	ctx := context.Background()

	created, err := tr.Create(ctx, TrackingRecord{
		SeedID:     "home-page",
		Collection: "pages",
		DocumentID: "doc-1",
		Checksum:   "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-00", created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.NotEmpty(t, created.CreatedAt)

	found, err := tr.FindBySeedID(ctx, "home-page")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created, *found)
}

func TestTrackerCreateDuplicateSeedID(t *testing.T) {
	tr := testTracker(t)
	ctx := context.Background()

	_, err := tr.Create(ctx, TrackingRecord{SeedID: "home-page", Collection: "pages", DocumentID: "doc-1", Checksum: "abc"})
	require.NoError(t, err)

	_, err = tr.Create(ctx, TrackingRecord{SeedID: "home-page", Collection: "pages", DocumentID: "doc-2", Checksum: "def"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already tracked")
}

func TestTrackerUpdateChecksum(t *testing.T) {
	tr := testTracker(t)
	ctx := context.Background()

	created, err := tr.Create(ctx, TrackingRecord{SeedID: "home-page", Collection: "pages", DocumentID: "doc-1", Checksum: "abc"})
	require.NoError(t, err)

	updated, err := tr.UpdateChecksum(ctx, "home-page", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", updated.Checksum)
	assert.Equal(t, "doc-1", updated.DocumentID)
	assert.NotEqual(t, created.UpdatedAt, updated.UpdatedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestTrackerUpdateChecksumUnknownSeed(t *testing.T) {
	tr := testTracker(t)

	_, err := tr.UpdateChecksum(context.Background(), "ghost", "abc")
	require.Error(t, err)

	var trackErr *TrackingError
	require.ErrorAs(t, err, &trackErr)
	assert.Equal(t, "ghost", trackErr.SeedID)
	assert.Equal(t, "updateChecksum", trackErr.Op)
}

func TestTrackerDelete(t *testing.T) {
	tr := testTracker(t)
	ctx := context.Background()

	_, err := tr.Create(ctx, TrackingRecord{SeedID: "home-page", Collection: "pages", DocumentID: "doc-1", Checksum: "abc"})
	require.NoError(t, err)

	removed, err := tr.Delete(ctx, "home-page")
	require.NoError(t, err)
	assert.True(t, removed)

	rec, err := tr.FindBySeedID(ctx, "home-page")
	require.NoError(t, err)
	assert.Nil(t, rec)

	removed, err = tr.Delete(ctx, "home-page")
	require.NoError(t, err)
	assert.False(t, removed)
}
