package query

import "strings"

// Matches reports whether doc satisfies the filter.
// A nil filter matches every document.
func Matches(w Where, doc map[string]any) bool {
	if w == nil {
		return true
	}

	switch cond := w.(type) {
	case Eq:
		got, ok := doc[cond.Field]
		return ok && looseEqual(got, cond.Value)
	case In:
		got, ok := doc[cond.Field]
		if !ok {
			return false
		}
		for _, v := range cond.Values {
			if looseEqual(got, v) {
				return true
			}
		}
		return false
	case Cmp:
		got, ok := doc[cond.Field]
		if !ok {
			return false
		}
		return compare(got, cond.Op, cond.Value)
	case And:
		for _, c := range cond.Conds {
			if !Matches(c, doc) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range cond.Conds {
			if Matches(c, doc) {
				return true
			}
		}
		return false
	default:
		// Unreachable: the interface is sealed.
		return false
	}
}

// looseEqual compares two values with numeric widening.
//
// JSON decoding produces float64 for every number, while Go callers build
// filters with int literals. Treating 3 and 3.0 as equal keeps the two
// sources of filters consistent.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// compare orders got against want under op.
// Numbers order numerically, strings lexicographically; mixed or
// non-orderable types never match.
func compare(got any, op CmpOp, want any) bool {
	if gf, ok := asFloat(got); ok {
		wf, ok := asFloat(want)
		if !ok {
			return false
		}
		return applyOp(op, floatCmp(gf, wf))
	}

	gs, gok := got.(string)
	ws, wok := want.(string)
	if gok && wok {
		return applyOp(op, strings.Compare(gs, ws))
	}

	return false
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func applyOp(op CmpOp, cmp int) bool {
	switch op {
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpGTE:
		return cmp >= 0
	default:
		return false
	}
}
