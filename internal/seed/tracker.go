package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/query"
	"github.com/roach88/momentum/internal/storage"
)

// TrackingCollection is the dedicated collection holding seed bookkeeping,
// unique on seedId.
const TrackingCollection = "_momentum_seeds"

// TrackingRecord maps a stable seedId to the document it produced and the
// checksum of the input that produced it.
type TrackingRecord struct {
	ID         string `json:"id"`
	SeedID     string `json:"seedId"`
	Collection string `json:"collection"`
	DocumentID string `json:"documentId"`
	Checksum   string `json:"checksum"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// TrackingError reports a bookkeeping operation against a seedId that is
// not tracked. This is a programmer error in the seeding driver, not a
// retryable condition.
type TrackingError struct {
	SeedID string
	Op     string
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("seed tracking: %s on unknown seedId %q", e.Op, e.SeedID)
}

// Tracker persists tracking records through the storage adapter.
type Tracker struct {
	adapter storage.Adapter
	clock   engine.Clock
	ids     engine.IDGenerator
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the timestamp source.
func WithClock(c engine.Clock) TrackerOption {
	return func(t *Tracker) { t.clock = c }
}

// WithIDGenerator overrides the record ID source.
func WithIDGenerator(g engine.IDGenerator) TrackerOption {
	return func(t *Tracker) { t.ids = g }
}

// NewTracker creates a tracker over the adapter.
func NewTracker(adapter storage.Adapter, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		adapter: adapter,
		clock:   engine.SystemClock{},
		ids:     engine.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FindBySeedID returns the record for seedId, or nil when the seed has
// never run.
func (t *Tracker) FindBySeedID(ctx context.Context, seedID string) (*TrackingRecord, error) {
	docs, err := t.adapter.Find(ctx, TrackingCollection, query.Eq{Field: "seedId", Value: seedID})
	if err != nil {
		return nil, fmt.Errorf("find seed %q: %w", seedID, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	rec := recordFromDoc(docs[0])
	return &rec, nil
}

// Create persists a new tracking record, assigning its identifier and
// timestamps.
func (t *Tracker) Create(ctx context.Context, rec TrackingRecord) (TrackingRecord, error) {
	existing, err := t.FindBySeedID(ctx, rec.SeedID)
	if err != nil {
		return TrackingRecord{}, err
	}
	if existing != nil {
		return TrackingRecord{}, fmt.Errorf("seed tracking: seedId %q already tracked", rec.SeedID)
	}

	now := t.clock.Now().UTC().Format(time.RFC3339)
	rec.ID = t.ids.Generate()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if _, err := t.adapter.Create(ctx, TrackingCollection, rec.toDoc()); err != nil {
		return TrackingRecord{}, fmt.Errorf("track seed %q: %w", rec.SeedID, err)
	}
	return rec, nil
}

// UpdateChecksum replaces the stored checksum for seedId.
func (t *Tracker) UpdateChecksum(ctx context.Context, seedID, checksum string) (TrackingRecord, error) {
	rec, err := t.FindBySeedID(ctx, seedID)
	if err != nil {
		return TrackingRecord{}, err
	}
	if rec == nil {
		return TrackingRecord{}, &TrackingError{SeedID: seedID, Op: "updateChecksum"}
	}

	rec.Checksum = checksum
	rec.UpdatedAt = t.clock.Now().UTC().Format(time.RFC3339)

	_, err = t.adapter.Update(ctx, TrackingCollection, rec.ID, map[string]any{
		"checksum":  rec.Checksum,
		"updatedAt": rec.UpdatedAt,
	})
	if err != nil {
		return TrackingRecord{}, fmt.Errorf("update seed %q: %w", seedID, err)
	}
	return *rec, nil
}

// Delete removes the tracking record for seedId, reporting whether one
// existed. The seeded document itself is untouched.
func (t *Tracker) Delete(ctx context.Context, seedID string) (bool, error) {
	rec, err := t.FindBySeedID(ctx, seedID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return t.adapter.Delete(ctx, TrackingCollection, rec.ID)
}

func (r TrackingRecord) toDoc() storage.Document {
	return storage.Document{
		"id":         r.ID,
		"seedId":     r.SeedID,
		"collection": r.Collection,
		"documentId": r.DocumentID,
		"checksum":   r.Checksum,
		"createdAt":  r.CreatedAt,
		"updatedAt":  r.UpdatedAt,
	}
}

func recordFromDoc(doc storage.Document) TrackingRecord {
	get := func(key string) string {
		s, _ := doc[key].(string)
		return s
	}
	return TrackingRecord{
		ID:         get("id"),
		SeedID:     get("seedId"),
		Collection: get("collection"),
		DocumentID: get("documentId"),
		Checksum:   get("checksum"),
		CreatedAt:  get("createdAt"),
		UpdatedAt:  get("updatedAt"),
	}
}
