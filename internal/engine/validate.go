package engine

import (
	"fmt"

	"github.com/roach88/momentum/internal/schema"
)

// validatePayload checks a payload against the collection's declared fields.
//
// Required-field checks apply only when requireAll is set (create). Type and
// constraint checks apply to every field present in the payload, whatever
// the operation: a partial patch may omit fields but never violate one it
// carries.
//
// Every failure is collected so the caller gets itemized field errors, not
// the first one.
func validatePayload(col *schema.Collection, payload map[string]any, requireAll bool) []FieldError {
	var errs []FieldError
	validateFieldSet(col.Fields, "", payload, requireAll, &errs)
	return errs
}

func validateFieldSet(fields []schema.Field, prefix string, payload map[string]any, requireAll bool, errs *[]FieldError) {
	for _, f := range fields {
		if f.Type.LayoutOnly() {
			// Layout containers contribute their children to the
			// parent's namespace.
			validateFieldSet(f.Fields, prefix, payload, requireAll, errs)
			continue
		}

		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		value, present := payload[f.Name]
		if !present || value == nil {
			if requireAll && f.Required && f.Default == nil {
				*errs = append(*errs, FieldError{Field: path, Message: "field is required"})
			}
			continue
		}

		validateValue(f, path, value, requireAll, errs)
	}
}

func validateValue(f schema.Field, path string, value any, requireAll bool, errs *[]FieldError) {
	add := func(msg string) {
		*errs = append(*errs, FieldError{Field: path, Message: msg})
	}

	switch f.Type {
	case schema.FieldText, schema.FieldRichText:
		s, ok := value.(string)
		if !ok {
			add("expected a string")
			return
		}
		if f.MinLength != nil && len(s) < *f.MinLength {
			add(fmt.Sprintf("must be at least %d characters", *f.MinLength))
		}
		if f.MaxLength != nil && len(s) > *f.MaxLength {
			add(fmt.Sprintf("must be at most %d characters", *f.MaxLength))
		}

	case schema.FieldNumber:
		n, ok := asNumber(value)
		if !ok {
			add("expected a number")
			return
		}
		if f.Min != nil && n < *f.Min {
			add(fmt.Sprintf("must be at least %v", *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			add(fmt.Sprintf("must be at most %v", *f.Max))
		}
		if f.Step != nil && *f.Step > 0 {
			steps := n / *f.Step
			if steps != float64(int64(steps)) {
				add(fmt.Sprintf("must be a multiple of %v", *f.Step))
			}
		}

	case schema.FieldDate:
		if _, ok := value.(string); !ok {
			add("expected a date string")
		}

	case schema.FieldCheckbox:
		if _, ok := value.(bool); !ok {
			add("expected a boolean")
		}

	case schema.FieldSelect:
		s, ok := value.(string)
		if !ok {
			add("expected a string option")
			return
		}
		for _, opt := range f.Options {
			if s == opt {
				return
			}
		}
		add(fmt.Sprintf("%q is not a valid option", s))

	case schema.FieldRelationship, schema.FieldUpload:
		if _, ok := value.(string); !ok {
			add("expected a document id")
		}

	case schema.FieldArray, schema.FieldBlocks:
		rows, ok := value.([]any)
		if !ok {
			add("expected an array of rows")
			return
		}
		if f.MinRows != nil && len(rows) < *f.MinRows {
			add(fmt.Sprintf("must have at least %d rows", *f.MinRows))
		}
		if f.MaxRows != nil && len(rows) > *f.MaxRows {
			add(fmt.Sprintf("must have at most %d rows", *f.MaxRows))
		}
		if f.Type == schema.FieldArray {
			for i, row := range rows {
				rowMap, ok := row.(map[string]any)
				if !ok {
					*errs = append(*errs, FieldError{
						Field:   fmt.Sprintf("%s.%d", path, i),
						Message: "expected an object",
					})
					continue
				}
				validateFieldSet(f.Fields, fmt.Sprintf("%s.%d", path, i), rowMap, requireAll, errs)
			}
		}

	case schema.FieldGroup:
		group, ok := value.(map[string]any)
		if !ok {
			add("expected an object")
			return
		}
		validateFieldSet(f.Fields, path, group, requireAll, errs)

	case schema.FieldJSON:
		// Any JSON-shaped value is acceptable.
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
