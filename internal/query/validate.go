package query

import "fmt"

// Reserved field names always accepted by Validate, regardless of the
// collection's declared fields. These are stamped by the engine.
var reservedFields = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"_status":   true,
}

// Validate checks that every predicate in the filter references a known
// field. known holds the collection's declared field names; the engine's
// reserved fields (id, createdAt, updatedAt, _status) are always accepted.
//
// Returns an error naming the first unknown field encountered.
func Validate(w Where, known map[string]bool) error {
	if w == nil {
		return nil
	}

	switch cond := w.(type) {
	case Eq:
		return checkField(cond.Field, known)
	case In:
		return checkField(cond.Field, known)
	case Cmp:
		if err := checkField(cond.Field, known); err != nil {
			return err
		}
		switch cond.Op {
		case OpLT, OpLTE, OpGT, OpGTE:
			return nil
		default:
			return fmt.Errorf("invalid comparison operator %q", cond.Op)
		}
	case And:
		for _, c := range cond.Conds {
			if err := Validate(c, known); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, c := range cond.Conds {
			if err := Validate(c, known); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported filter type %T", w)
	}
}

func checkField(field string, known map[string]bool) error {
	if field == "" {
		return fmt.Errorf("filter references empty field name")
	}
	if reservedFields[field] {
		return nil
	}
	if known != nil && !known[field] {
		return fmt.Errorf("filter references unknown field %q", field)
	}
	return nil
}
