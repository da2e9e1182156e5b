// Package access implements per-operation authorization for collections.
//
// A Rule is a closed variant, not a duck-typed value: a constant allow or
// deny, a boolean predicate over the request context, or a row-level filter
// that scopes which documents an operation may touch. Evaluation is a match
// over the variants.
//
// The absent-rule default is ALLOW. This is deliberate: collections opt in to
// restrictions, and a missing rule means the operation is open. Getting this
// backwards (default-deny) breaks every collection that declares no access
// block at all.
package access

import (
	"fmt"
	"log/slog"

	"github.com/roach88/momentum/internal/query"
)

// Operation names one of the four independently-authorized operations.
// No operation implies another: update permission says nothing about read.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// User is the requesting identity carried on every engine call.
type User struct {
	ID    string
	Roles []string
	Admin bool
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Context is what a rule gets to decide with: the requesting user (nil for
// unauthenticated callers) and, for mutations, the operation payload.
type Context struct {
	User *User
	Data map[string]any
}

// Rule is a sealed access-rule variant.
//
// Variants:
//   - AlwaysAllow: constant true
//   - AlwaysDeny: constant false
//   - Predicate: boolean function of the request context
//   - Filtered: allows the operation but scopes it to documents matching
//     the returned filter (row-level rule)
type Rule interface {
	ruleNode() // Marker method - seals interface to this package
}

// AlwaysAllow permits the operation unconditionally.
type AlwaysAllow struct{}

// AlwaysDeny refuses the operation unconditionally.
type AlwaysDeny struct{}

// Predicate permits the operation when Fn returns true.
type Predicate struct {
	Fn func(Context) bool
}

// Filtered permits the operation but restricts it to documents matching the
// filter Fn returns for the request context. A nil filter means no
// restriction for that caller (typical for admins).
type Filtered struct {
	Fn func(Context) query.Where
}

func (AlwaysAllow) ruleNode() {}
func (AlwaysDeny) ruleNode()  {}
func (Predicate) ruleNode()   {}
func (Filtered) ruleNode()    {}

// Rules holds one rule per operation. Any nil rule defaults to allow.
type Rules struct {
	Read   Rule
	Create Rule
	Update Rule
	Delete Rule
}

// For returns the rule declared for op, or AlwaysAllow when none is.
func (r Rules) For(op Operation) Rule {
	var rule Rule
	switch op {
	case OpRead:
		rule = r.Read
	case OpCreate:
		rule = r.Create
	case OpUpdate:
		rule = r.Update
	case OpDelete:
		rule = r.Delete
	}
	if rule == nil {
		return AlwaysAllow{}
	}
	return rule
}

// Result is the outcome of evaluating one rule.
type Result struct {
	// Allowed reports whether the operation may proceed at all.
	Allowed bool

	// Filter further scopes the operation to matching documents.
	// Nil means no row-level restriction. Only Filtered rules set this.
	Filter query.Where
}

// Evaluate applies a rule to a request context.
//
// A panicking predicate or filter function is treated as deny and logged:
// an authorization bug must never widen access (fail-closed).
func Evaluate(rule Rule, ctx Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("access rule panicked, denying",
				"panic", fmt.Sprint(r))
			res = Result{Allowed: false}
		}
	}()

	switch v := rule.(type) {
	case nil:
		return Result{Allowed: true}
	case AlwaysAllow:
		return Result{Allowed: true}
	case AlwaysDeny:
		return Result{Allowed: false}
	case Predicate:
		if v.Fn == nil {
			return Result{Allowed: true}
		}
		return Result{Allowed: v.Fn(ctx)}
	case Filtered:
		if v.Fn == nil {
			return Result{Allowed: true}
		}
		return Result{Allowed: true, Filter: v.Fn(ctx)}
	default:
		// Unreachable: the interface is sealed.
		return Result{Allowed: false}
	}
}
