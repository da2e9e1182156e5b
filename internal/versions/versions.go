// Package versions implements the draft/publish lifecycle for collections
// that opt into versioning.
//
// Every mutation of a versioned document appends a full-snapshot version
// record to a shadow collection (_<slug>_versions) through the same storage
// adapter the engine uses. The live document's visible status moves through
// a small state machine: draft -> published -> back to draft. Autosave
// versions sit outside those transitions and are pruned beyond the
// collection's retention bound; manually saved versions are never pruned.
//
// Atomicity: publish-and-demote and restore-and-publish are ordered so that
// a caller never observes zero published versions if one existed before.
// True transactionality belongs to the adapter; this package only promises
// observable near-atomicity.
package versions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/looplab/fsm"

	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/query"
	"github.com/roach88/momentum/internal/schema"
	"github.com/roach88/momentum/internal/storage"
)

// Status is a version's lifecycle status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Lifecycle event names for the publish state machine.
const (
	EventPublish   = "publish"
	EventUnpublish = "unpublish"
)

// Version is one snapshot of a parent document.
type Version struct {
	ID          string         `json:"id"`
	Parent      string         `json:"parent"`
	Snapshot    map[string]any `json:"version"`
	Status      Status         `json:"_status"`
	Autosave    bool           `json:"autosave"`
	PublishedAt string         `json:"publishedAt,omitempty"`
	ScheduledAt string         `json:"scheduledAt,omitempty"`
	CreatedAt   string         `json:"createdAt"`
}

// VersionNotFoundError reports a missing version record.
type VersionNotFoundError struct {
	Collection string
	VersionID  string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found in %q", e.VersionID, e.Collection)
}

// InvalidTransitionError reports a lifecycle event fired from a state that
// does not permit it (e.g. unpublish on a draft).
type InvalidTransitionError struct {
	Collection string
	DocumentID string
	Event      string
	From       Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %q from %q for %s/%s",
		e.Event, e.From, e.Collection, e.DocumentID)
}

// Store manages version records for one versioned collection.
type Store struct {
	adapter storage.Adapter
	col     *schema.Collection
	clock   engine.Clock
	ids     engine.IDGenerator
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(c engine.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator overrides the version ID source.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// NewStore creates a version store for a collection with versions enabled.
func NewStore(adapter storage.Adapter, col *schema.Collection, opts ...Option) (*Store, error) {
	if col.Versions == nil || !col.Versions.Drafts {
		return nil, fmt.Errorf("collection %q does not enable versions", col.Slug)
	}
	s := &Store{
		adapter: adapter,
		col:     col,
		clock:   engine.SystemClock{},
		ids:     engine.UUIDv7Generator{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// shadow is the versions collection slug for the parent collection.
func (s *Store) shadow() string {
	return "_" + s.col.Slug + "_versions"
}

// machine builds the publish lifecycle machine seeded with the document's
// current status. Transition legality lives in this table and nowhere else.
func (s *Store) machine(current Status, parentID string) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			// Re-publishing a published document is legal: it promotes
			// the latest snapshot.
			{Name: EventPublish, Src: []string{string(StatusDraft), string(StatusPublished)}, Dst: string(StatusPublished)},
			{Name: EventUnpublish, Src: []string{string(StatusPublished)}, Dst: string(StatusDraft)},
		},
		fsm.Callbacks{
			"enter_" + string(StatusPublished): func(_ context.Context, _ *fsm.Event) {
				s.log.Debug("entering published state",
					"collection", s.col.Slug,
					"id", parentID)
			},
		},
	)
}

// fireEvent runs a lifecycle event, tolerating the stay-in-state case
// (re-publishing a published document is a no-transition, not a failure).
func fireEvent(ctx context.Context, m *fsm.FSM, event string) error {
	err := m.Event(ctx, event)
	if err == nil {
		return nil
	}
	if _, ok := err.(fsm.NoTransitionError); ok {
		return nil
	}
	return err
}

// CreateVersion appends a snapshot for the parent document.
//
// Autosave versions are pruned oldest-first once the collection's retention
// bound is exceeded. Manual versions are never pruned here.
func (s *Store) CreateVersion(ctx context.Context, parentID string, snapshot map[string]any, status Status, autosave bool) (Version, error) {
	now := timestamp(s.clock.Now())
	v := Version{
		ID:        s.ids.Generate(),
		Parent:    parentID,
		Snapshot:  snapshot,
		Status:    status,
		Autosave:  autosave,
		CreatedAt: now,
	}
	if status == StatusPublished {
		v.PublishedAt = now
	}

	if _, err := s.adapter.Create(ctx, s.shadow(), v.toDoc()); err != nil {
		return Version{}, fmt.Errorf("create version for %s/%s: %w", s.col.Slug, parentID, err)
	}

	if autosave {
		if err := s.pruneAutosaves(ctx, parentID); err != nil {
			return Version{}, err
		}
	}
	return v, nil
}

// Versions lists the parent's versions, oldest first.
func (s *Store) Versions(ctx context.Context, parentID string) ([]Version, error) {
	docs, err := s.adapter.Find(ctx, s.shadow(), query.Eq{Field: "parent", Value: parentID})
	if err != nil {
		return nil, fmt.Errorf("list versions for %s/%s: %w", s.col.Slug, parentID, err)
	}

	out := make([]Version, 0, len(docs))
	for _, doc := range docs {
		out = append(out, versionFromDoc(doc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PublishOptions shapes a publish call.
type PublishOptions struct {
	// ScheduledAt, when in the future, defers the publish: the latest
	// version is marked pending and an external scheduler re-invokes
	// Publish at the due time. This core runs no timers.
	ScheduledAt *time.Time
}

// Publish promotes the parent's latest version to published, demotes any
// prior published version, and flips the live document's status.
//
// Invariant preserved: at most one version per parent is published at any
// instant. The new version is promoted before the prior one is demoted, so
// the observable count never drops to zero mid-publish.
func (s *Store) Publish(ctx context.Context, parentID string, opts PublishOptions) (Version, error) {
	live, err := s.adapter.FindByID(ctx, s.col.Slug, parentID)
	if err != nil {
		return Version{}, fmt.Errorf("publish %s/%s: %w", s.col.Slug, parentID, err)
	}
	if live == nil {
		return Version{}, &engine.DocumentNotFoundError{Collection: s.col.Slug, ID: parentID}
	}

	all, err := s.Versions(ctx, parentID)
	if err != nil {
		return Version{}, err
	}
	latest, ok := latestNonAutosave(all)
	if !ok {
		// No version history yet: snapshot the live document first.
		latest, err = s.CreateVersion(ctx, parentID, live, StatusDraft, false)
		if err != nil {
			return Version{}, err
		}
		all = append(all, latest)
	}

	now := s.clock.Now()
	if opts.ScheduledAt != nil && opts.ScheduledAt.After(now) {
		due := timestamp(*opts.ScheduledAt)
		if _, err := s.adapter.Update(ctx, s.shadow(), latest.ID, map[string]any{"scheduledAt": due}); err != nil {
			return Version{}, fmt.Errorf("schedule publish %s/%s: %w", s.col.Slug, parentID, err)
		}
		latest.ScheduledAt = due
		s.log.Info("publish scheduled",
			"collection", s.col.Slug,
			"id", parentID,
			"at", due)
		return latest, nil
	}

	m := s.machine(liveStatus(live), parentID)
	if err := fireEvent(ctx, m, EventPublish); err != nil {
		return Version{}, s.transitionErr(EventPublish, parentID, live, err)
	}

	stamp := timestamp(now)

	// Promote first, demote second.
	patch := map[string]any{
		"_status":     string(StatusPublished),
		"publishedAt": stamp,
		"scheduledAt": "",
	}
	if _, err := s.adapter.Update(ctx, s.shadow(), latest.ID, patch); err != nil {
		return Version{}, fmt.Errorf("publish %s/%s: %w", s.col.Slug, parentID, err)
	}
	for _, v := range all {
		if v.ID != latest.ID && v.Status == StatusPublished {
			if _, err := s.adapter.Update(ctx, s.shadow(), v.ID, map[string]any{"_status": string(StatusDraft)}); err != nil {
				return Version{}, fmt.Errorf("demote prior version %s: %w", v.ID, err)
			}
		}
	}

	if _, err := s.adapter.Update(ctx, s.col.Slug, parentID, map[string]any{"_status": string(StatusPublished)}); err != nil {
		return Version{}, fmt.Errorf("publish %s/%s: %w", s.col.Slug, parentID, err)
	}

	s.log.Info("document published",
		"collection", s.col.Slug,
		"id", parentID,
		"version", latest.ID)

	latest.Status = StatusPublished
	latest.PublishedAt = stamp
	latest.ScheduledAt = ""
	return latest, nil
}

// Unpublish reverts the live document's visible status to draft.
// Version history is retained untouched.
func (s *Store) Unpublish(ctx context.Context, parentID string) error {
	live, err := s.adapter.FindByID(ctx, s.col.Slug, parentID)
	if err != nil {
		return fmt.Errorf("unpublish %s/%s: %w", s.col.Slug, parentID, err)
	}
	if live == nil {
		return &engine.DocumentNotFoundError{Collection: s.col.Slug, ID: parentID}
	}

	m := s.machine(liveStatus(live), parentID)
	if err := fireEvent(ctx, m, EventUnpublish); err != nil {
		return s.transitionErr(EventUnpublish, parentID, live, err)
	}

	if _, err := s.adapter.Update(ctx, s.col.Slug, parentID, map[string]any{"_status": string(StatusDraft)}); err != nil {
		return fmt.Errorf("unpublish %s/%s: %w", s.col.Slug, parentID, err)
	}

	s.log.Info("document unpublished",
		"collection", s.col.Slug,
		"id", parentID)
	return nil
}

// Restore copies a historical version's snapshot into the live document.
// Intervening versions are never deleted. With publish set, the restored
// snapshot is immediately published; the promote-before-demote ordering in
// Publish keeps the published-version count observable-atomic.
func (s *Store) Restore(ctx context.Context, parentID, versionID string, publish bool) (Version, error) {
	doc, err := s.adapter.FindByID(ctx, s.shadow(), versionID)
	if err != nil {
		return Version{}, fmt.Errorf("restore %s/%s: %w", s.col.Slug, parentID, err)
	}
	if doc == nil {
		return Version{}, &VersionNotFoundError{Collection: s.col.Slug, VersionID: versionID}
	}
	v := versionFromDoc(doc)
	if v.Parent != parentID {
		return Version{}, &VersionNotFoundError{Collection: s.col.Slug, VersionID: versionID}
	}

	patch := make(map[string]any, len(v.Snapshot))
	for k, val := range v.Snapshot {
		if k == "id" || k == "createdAt" {
			continue
		}
		patch[k] = val
	}
	patch["updatedAt"] = timestamp(s.clock.Now())
	if !publish {
		patch["_status"] = string(StatusDraft)
	}

	if _, err := s.adapter.Update(ctx, s.col.Slug, parentID, patch); err != nil {
		return Version{}, fmt.Errorf("restore %s/%s: %w", s.col.Slug, parentID, err)
	}

	// The restore itself becomes a new version on top of the history.
	restored, err := s.CreateVersion(ctx, parentID, v.Snapshot, StatusDraft, false)
	if err != nil {
		return Version{}, err
	}

	if publish {
		return s.Publish(ctx, parentID, PublishOptions{})
	}

	s.log.Info("version restored",
		"collection", s.col.Slug,
		"id", parentID,
		"from", versionID)
	return restored, nil
}

// PublishedVersion returns the parent's currently published version, if any.
func (s *Store) PublishedVersion(ctx context.Context, parentID string) (Version, bool, error) {
	all, err := s.Versions(ctx, parentID)
	if err != nil {
		return Version{}, false, err
	}
	for _, v := range all {
		if v.Status == StatusPublished {
			return v, true, nil
		}
	}
	return Version{}, false, nil
}

// pruneAutosaves drops the oldest autosave versions beyond the retention
// bound. Non-autosave versions never count against it.
func (s *Store) pruneAutosaves(ctx context.Context, parentID string) error {
	all, err := s.Versions(ctx, parentID)
	if err != nil {
		return err
	}

	autosaves := make([]Version, 0, len(all))
	for _, v := range all {
		if v.Autosave {
			autosaves = append(autosaves, v)
		}
	}

	max := s.col.Versions.EffectiveMaxPerDoc()
	for i := 0; len(autosaves)-i > max; i++ {
		if _, err := s.adapter.Delete(ctx, s.shadow(), autosaves[i].ID); err != nil {
			return fmt.Errorf("prune autosave %s: %w", autosaves[i].ID, err)
		}
	}
	return nil
}

// transitionErr converts a state-machine refusal into the typed error;
// adapter failures pass through wrapped.
func (s *Store) transitionErr(event, parentID string, live storage.Document, err error) error {
	if _, ok := err.(fsm.InvalidEventError); ok {
		return &InvalidTransitionError{
			Collection: s.col.Slug,
			DocumentID: parentID,
			Event:      event,
			From:       liveStatus(live),
		}
	}
	return fmt.Errorf("%s %s/%s: %w", event, s.col.Slug, parentID, err)
}

func latestNonAutosave(all []Version) (Version, bool) {
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Autosave {
			return all[i], true
		}
	}
	return Version{}, false
}

func liveStatus(doc storage.Document) Status {
	if st, ok := doc["_status"].(string); ok && st == string(StatusPublished) {
		return StatusPublished
	}
	return StatusDraft
}

func (v Version) toDoc() storage.Document {
	doc := storage.Document{
		"id":        v.ID,
		"parent":    v.Parent,
		"version":   v.Snapshot,
		"_status":   string(v.Status),
		"autosave":  v.Autosave,
		"createdAt": v.CreatedAt,
	}
	if v.PublishedAt != "" {
		doc["publishedAt"] = v.PublishedAt
	}
	if v.ScheduledAt != "" {
		doc["scheduledAt"] = v.ScheduledAt
	}
	return doc
}

func versionFromDoc(doc storage.Document) Version {
	v := Version{
		ID:       str(doc["id"]),
		Parent:   str(doc["parent"]),
		Status:   StatusDraft,
		Autosave: doc["autosave"] == true,
	}
	if snap, ok := doc["version"].(map[string]any); ok {
		v.Snapshot = snap
	}
	if st := str(doc["_status"]); st == string(StatusPublished) {
		v.Status = StatusPublished
	}
	v.PublishedAt = str(doc["publishedAt"])
	v.ScheduledAt = str(doc["scheduledAt"])
	v.CreatedAt = str(doc["createdAt"])
	return v
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
