package schema

import (
	"fmt"
	"regexp"
)

// Slugs are kebab-case: lowercase segments separated by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Problem is one shape defect found during validation.
type Problem struct {
	Collection string // collection or global slug; may be empty for the slug itself
	Field      string // field path, empty for collection-level problems
	Message    string
}

func (p Problem) String() string {
	switch {
	case p.Field != "":
		return fmt.Sprintf("%s.%s: %s", p.Collection, p.Field, p.Message)
	case p.Collection != "":
		return fmt.Sprintf("%s: %s", p.Collection, p.Message)
	default:
		return p.Message
	}
}

// ValidateSlug checks kebab-case slug shape.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("slug %q is not kebab-case", slug)
	}
	return nil
}

// Validate checks the collection's declared shape. It returns every problem
// found, not just the first: configuration errors surface together at load
// time rather than one per restart.
func (c *Collection) Validate() []Problem {
	var problems []Problem

	add := func(field, msg string) {
		problems = append(problems, Problem{Collection: c.Slug, Field: field, Message: msg})
	}

	if err := ValidateSlug(c.Slug); err != nil {
		problems = append(problems, Problem{Collection: c.Slug, Message: err.Error()})
	}
	if len(c.Fields) == 0 {
		add("", "collection declares no fields")
	}

	validateFields(c.Slug, "", c.Fields, &problems)

	names := c.FieldNames()
	for _, idx := range c.Indexes {
		if len(idx.Fields) == 0 {
			add("", "index declares no fields")
			continue
		}
		for _, f := range idx.Fields {
			if !names[f] {
				add("", fmt.Sprintf("index references unknown field %q", f))
			}
		}
	}

	if c.Versions != nil && c.Versions.MaxPerDoc < 0 {
		add("", "versions.maxPerDoc must not be negative")
	}

	return problems
}

// Validate checks the global's declared shape.
func (g *Global) Validate() []Problem {
	var problems []Problem

	if err := ValidateSlug(g.Slug); err != nil {
		problems = append(problems, Problem{Collection: g.Slug, Message: err.Error()})
	}
	if len(g.Fields) == 0 {
		problems = append(problems, Problem{Collection: g.Slug, Message: "global declares no fields"})
	}
	validateFields(g.Slug, "", g.Fields, &problems)

	return problems
}

func validateFields(slug, prefix string, fields []Field, problems *[]Problem) {
	seen := make(map[string]bool, len(fields))

	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		add := func(msg string) {
			*problems = append(*problems, Problem{Collection: slug, Field: path, Message: msg})
		}

		if f.Type.LayoutOnly() {
			if len(f.Fields) == 0 {
				add(fmt.Sprintf("%s field has no child fields", f.Type))
			}
			// Layout containers share their parent's namespace.
			validateFields(slug, prefix, f.Fields, problems)
			continue
		}

		if f.Name == "" {
			add("field name is required")
			continue
		}
		if seen[f.Name] {
			add("duplicate field name")
		}
		seen[f.Name] = true

		if !f.Type.Known() {
			add(fmt.Sprintf("unknown field type %q", f.Type))
			continue
		}

		switch f.Type {
		case FieldSelect:
			if len(f.Options) == 0 {
				add("select field has no options")
			}
		case FieldRelationship, FieldUpload:
			if f.RelationTo == "" {
				add(fmt.Sprintf("%s field has no relationTo", f.Type))
			}
		case FieldArray, FieldGroup:
			if len(f.Fields) == 0 {
				add(fmt.Sprintf("%s field has no child fields", f.Type))
			}
			validateFields(slug, path, f.Fields, problems)
		}

		if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
			add("minLength exceeds maxLength")
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			add("min exceeds max")
		}
		if f.MinRows != nil && f.MaxRows != nil && *f.MinRows > *f.MaxRows {
			add("minRows exceeds maxRows")
		}
	}
}
