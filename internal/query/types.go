package query

// Where represents a filter over documents in one collection.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in adapters.
type Where interface {
	whereNode() // Marker method - seals interface to this package
}

// CmpOp is a comparison operator for Cmp predicates.
type CmpOp string

const (
	OpLT  CmpOp = "lt"
	OpLTE CmpOp = "lte"
	OpGT  CmpOp = "gt"
	OpGTE CmpOp = "gte"
)

// Eq matches documents where field equals value.
//
// Equality is loose across numeric kinds (int64 3 equals float64 3.0) because
// documents round-trip through JSON, which erases the distinction.
type Eq struct {
	Field string
	Value any
}

// In matches documents where field equals any of the listed values.
type In struct {
	Field  string
	Values []any
}

// Cmp matches documents where field compares against value under Op.
// Only numeric and string values order; other types never match.
type Cmp struct {
	Field string
	Op    CmpOp
	Value any
}

// And matches documents satisfying every child predicate.
// An empty And matches everything.
type And struct {
	Conds []Where
}

// Or matches documents satisfying at least one child predicate.
// An empty Or matches nothing.
type Or struct {
	Conds []Where
}

func (Eq) whereNode()  {}
func (In) whereNode()  {}
func (Cmp) whereNode() {}
func (And) whereNode() {}
func (Or) whereNode()  {}

// Intersect combines two filters so a document must satisfy both.
// Either side may be nil, meaning "no constraint from this side".
//
// This is how a collection's defaultWhere is folded into the caller's
// explicit filter: the result never widens either input.
func Intersect(a, b Where) Where {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return And{Conds: []Where{a, b}}
}
