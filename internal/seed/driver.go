package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/momentum/internal/engine"
)

// Seed declares one document that should exist after seeding.
type Seed struct {
	// SeedID is the stable identity of this seed across runs.
	SeedID string `yaml:"seedId"`

	// Collection is the target collection slug.
	Collection string `yaml:"collection"`

	// Data is the document payload.
	Data map[string]any `yaml:"data"`
}

// Outcome says what Apply did for one seed.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Report summarizes one Apply run.
type Report struct {
	Created   int
	Updated   int
	Unchanged int

	// Documents maps seedId to the document id it owns. IDs are stable
	// across runs; re-seeding never reassigns them.
	Documents map[string]string
}

// Driver applies seed lists idempotently.
//
// Per seed: absent from the tracker means create document plus tracking
// record; present with a matching checksum is a no-op; present with a
// different checksum updates the tracked document and the checksum. The
// document id never changes once assigned.
type Driver struct {
	engine  *engine.Engine
	tracker *Tracker
	log     *slog.Logger
}

// NewDriver builds a driver over a bound engine and tracker.
// The engine should carry whatever identity the deployment seeds as
// (typically an admin), since seeding goes through normal engine access.
func NewDriver(eng *engine.Engine, tracker *Tracker) *Driver {
	return &Driver{engine: eng, tracker: tracker, log: slog.Default()}
}

// Apply runs the full seed list. Safe to re-run any number of times; the
// resulting document set converges.
func (d *Driver) Apply(ctx context.Context, seeds []Seed) (Report, error) {
	report := Report{Documents: make(map[string]string, len(seeds))}

	for _, s := range seeds {
		outcome, docID, err := d.applyOne(ctx, s)
		if err != nil {
			return report, fmt.Errorf("seed %q: %w", s.SeedID, err)
		}
		report.Documents[s.SeedID] = docID
		switch outcome {
		case OutcomeCreated:
			report.Created++
		case OutcomeUpdated:
			report.Updated++
		case OutcomeUnchanged:
			report.Unchanged++
		}
	}
	return report, nil
}

func (d *Driver) applyOne(ctx context.Context, s Seed) (Outcome, string, error) {
	if s.SeedID == "" {
		return "", "", fmt.Errorf("seed has no seedId")
	}

	sum, err := Checksum(s.Data)
	if err != nil {
		return "", "", err
	}

	rec, err := d.tracker.FindBySeedID(ctx, s.SeedID)
	if err != nil {
		return "", "", err
	}

	api, err := d.engine.Collection(s.Collection)
	if err != nil {
		return "", "", err
	}

	if rec == nil {
		doc, err := api.Create(ctx, s.Data)
		if err != nil {
			return "", "", err
		}
		docID, _ := doc["id"].(string)
		_, err = d.tracker.Create(ctx, TrackingRecord{
			SeedID:     s.SeedID,
			Collection: s.Collection,
			DocumentID: docID,
			Checksum:   sum,
		})
		if err != nil {
			return "", "", err
		}
		d.log.Info("seed created", "seedId", s.SeedID, "doc", docID)
		return OutcomeCreated, docID, nil
	}

	if rec.Checksum == sum {
		return OutcomeUnchanged, rec.DocumentID, nil
	}

	if _, err := api.Update(ctx, rec.DocumentID, s.Data); err != nil {
		return "", "", err
	}
	if _, err := d.tracker.UpdateChecksum(ctx, s.SeedID, sum); err != nil {
		return "", "", err
	}
	d.log.Info("seed updated", "seedId", s.SeedID, "doc", rec.DocumentID)
	return OutcomeUpdated, rec.DocumentID, nil
}

// seedFile is the YAML shape of a seed list on disk.
type seedFile struct {
	Seeds []Seed `yaml:"seeds"`
}

// LoadFile reads a YAML seed list.
//
// File shape:
//
//	seeds:
//	  - seedId: home-page
//	    collection: pages
//	    data:
//	      title: Home
func LoadFile(path string) ([]Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Seeds))
	for _, s := range f.Seeds {
		if s.SeedID == "" {
			return nil, fmt.Errorf("seed file %s: seed with empty seedId", path)
		}
		if seen[s.SeedID] {
			return nil, fmt.Errorf("seed file %s: duplicate seedId %q", path, s.SeedID)
		}
		seen[s.SeedID] = true
		if s.Collection == "" {
			return nil, fmt.Errorf("seed file %s: seed %q has no collection", path, s.SeedID)
		}
	}
	return f.Seeds, nil
}
