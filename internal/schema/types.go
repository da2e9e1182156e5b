package schema

import (
	"github.com/roach88/momentum/internal/access"
	"github.com/roach88/momentum/internal/hooks"
	"github.com/roach88/momentum/internal/query"
)

// FieldType is the closed set of field kinds.
//
// The set is intentionally closed: the migration generator maps every kind to
// a column type per dialect, and an open union would leave holes in that map.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldRichText     FieldType = "richText"
	FieldNumber       FieldType = "number"
	FieldDate         FieldType = "date"
	FieldCheckbox     FieldType = "checkbox"
	FieldSelect       FieldType = "select"
	FieldRelationship FieldType = "relationship"
	FieldUpload       FieldType = "upload"
	FieldArray        FieldType = "array"
	FieldGroup        FieldType = "group"
	FieldBlocks       FieldType = "blocks"
	FieldJSON         FieldType = "json"

	// Layout-only kinds. They shape the admin form, own no column, and
	// exist in the field list only to carry child fields.
	FieldTabs        FieldType = "tabs"
	FieldCollapsible FieldType = "collapsible"
	FieldRow         FieldType = "row"
)

// LayoutOnly reports whether the type carries no data of its own.
func (t FieldType) LayoutOnly() bool {
	switch t {
	case FieldTabs, FieldCollapsible, FieldRow:
		return true
	default:
		return false
	}
}

// Known reports whether t is one of the declared field types.
func (t FieldType) Known() bool {
	switch t {
	case FieldText, FieldRichText, FieldNumber, FieldDate, FieldCheckbox,
		FieldSelect, FieldRelationship, FieldUpload, FieldArray,
		FieldGroup, FieldBlocks, FieldJSON,
		FieldTabs, FieldCollapsible, FieldRow:
		return true
	default:
		return false
	}
}

// Field declares one field of a collection or global.
// Immutable after configuration load.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Default  any

	// Text constraints.
	MinLength *int
	MaxLength *int

	// Number constraints.
	Min  *float64
	Max  *float64
	Step *float64

	// Select option set. Membership is enforced on every write that
	// carries the field.
	Options []string

	// Relationship / upload target collection slug.
	RelationTo string

	// Array / blocks row-count bounds.
	MinRows *int
	MaxRows *int

	// Child fields for group, array, and the layout-only kinds.
	Fields []Field
}

// Index declares a storage index over one or more fields.
type Index struct {
	Fields []string
	Unique bool
}

// VersionSettings opts a collection into draft/publish semantics.
type VersionSettings struct {
	// Drafts enables the draft/published lifecycle.
	Drafts bool

	// MaxPerDoc bounds retained autosave versions per document.
	// Zero means DefaultMaxVersions. Non-autosave versions are never
	// pruned automatically.
	MaxPerDoc int
}

// DefaultMaxVersions is the autosave retention bound applied when a
// collection enables versions without choosing one.
const DefaultMaxVersions = 100

// EffectiveMaxPerDoc returns the configured bound or the default.
func (v *VersionSettings) EffectiveMaxPerDoc() int {
	if v == nil || v.MaxPerDoc <= 0 {
		return DefaultMaxVersions
	}
	return v.MaxPerDoc
}

// DefaultWhere produces the implicit scoping filter for a request context.
// It is intersected with every find, findById, update, and delete against
// the collection. Nil (or a nil return) means no implicit scoping.
type DefaultWhere func(access.Context) query.Where

// Collection declares a document type.
//
// The slug is the collection's identity: unique across the config,
// kebab-case, immutable. Fields are ordered and non-empty. Everything else
// is optional.
type Collection struct {
	Slug         string
	Fields       []Field
	Access       access.Rules
	Hooks        hooks.Hooks
	Versions     *VersionSettings
	Timestamps   bool
	Indexes      []Index
	DefaultWhere DefaultWhere
}

// NewCollection builds a collection with timestamps on, the default.
func NewCollection(slug string, fields ...Field) *Collection {
	return &Collection{
		Slug:       slug,
		Fields:     fields,
		Timestamps: true,
	}
}

// FieldNames returns the set of data-bearing field names, flattening
// layout-only containers. Used for filter validation.
func (c *Collection) FieldNames() map[string]bool {
	names := make(map[string]bool, len(c.Fields))
	collectFieldNames(c.Fields, names)
	return names
}

func collectFieldNames(fields []Field, names map[string]bool) {
	for _, f := range fields {
		if f.Type.LayoutOnly() {
			collectFieldNames(f.Fields, names)
			continue
		}
		names[f.Name] = true
	}
}

// FieldByName returns the data-bearing field with the given name, searching
// through layout-only containers.
func (c *Collection) FieldByName(name string) (Field, bool) {
	return findField(c.Fields, name)
}

func findField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Type.LayoutOnly() {
			if found, ok := findField(f.Fields, name); ok {
				return found, true
			}
			continue
		}
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Global declares a singleton document type outside the collection
// namespace. Same field, access, and hook shape as a collection; exactly one
// instance, auto-created on first read.
type Global struct {
	Slug   string
	Fields []Field
	Access access.Rules
	Hooks  hooks.Hooks
}

// FieldNames is the global counterpart of Collection.FieldNames.
func (g *Global) FieldNames() map[string]bool {
	names := make(map[string]bool, len(g.Fields))
	collectFieldNames(g.Fields, names)
	return names
}
