package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/momentum/internal/query"
)

func TestUserHasRole(t *testing.T) {
	u := &User{ID: "u1", Roles: []string{"editor", "reviewer"}}
	assert.True(t, u.HasRole("editor"))
	assert.False(t, u.HasRole("admin"))

	var nilUser *User
	assert.False(t, nilUser.HasRole("editor"))
}

func TestRulesForDefaultsToAllow(t *testing.T) {
	var rules Rules
	for _, op := range []Operation{OpRead, OpCreate, OpUpdate, OpDelete} {
		t.Run(string(op), func(t *testing.T) {
			assert.IsType(t, AlwaysAllow{}, rules.For(op))
		})
	}
}

func TestRulesForPerOperation(t *testing.T) {
	rules := Rules{
		Read:   AlwaysAllow{},
		Update: AlwaysDeny{},
	}
	assert.IsType(t, AlwaysAllow{}, rules.For(OpRead))
	assert.IsType(t, AlwaysDeny{}, rules.For(OpUpdate))
	// Undeclared operations stay open.
	assert.IsType(t, AlwaysAllow{}, rules.For(OpDelete))
}

func TestEvaluate(t *testing.T) {
	editor := &User{ID: "u1", Roles: []string{"editor"}}

	tests := []struct {
		name    string
		rule    Rule
		ctx     Context
		allowed bool
	}{
		{"nil rule allows", nil, Context{}, true},
		{"always allow", AlwaysAllow{}, Context{}, true},
		{"always deny", AlwaysDeny{}, Context{}, false},
		{"predicate true", Predicate{Fn: func(c Context) bool {
			return c.User.HasRole("editor")
		}}, Context{User: editor}, true},
		{"predicate false", Predicate{Fn: func(c Context) bool {
			return c.User.HasRole("admin")
		}}, Context{User: editor}, false},
		{"predicate sees payload", Predicate{Fn: func(c Context) bool {
			return c.Data["status"] == "draft"
		}}, Context{Data: map[string]any{"status": "draft"}}, true},
		{"nil predicate fn allows", Predicate{}, Context{}, true},
		{"nil filtered fn allows", Filtered{}, Context{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.rule, tt.ctx)
			assert.Equal(t, tt.allowed, res.Allowed)
		})
	}
}

func TestEvaluateFiltered(t *testing.T) {
	rule := Filtered{Fn: func(c Context) query.Where {
		if c.User != nil && c.User.Admin {
			return nil
		}
		return query.Eq{Field: "owner", Value: c.User.ID}
	}}

	res := Evaluate(rule, Context{User: &User{ID: "u1"}})
	require.True(t, res.Allowed)
	require.NotNil(t, res.Filter)
	assert.True(t, query.Matches(res.Filter, map[string]any{"owner": "u1"}))
	assert.False(t, query.Matches(res.Filter, map[string]any{"owner": "u2"}))

	admin := Evaluate(rule, Context{User: &User{ID: "root", Admin: true}})
	require.True(t, admin.Allowed)
	assert.Nil(t, admin.Filter)
}

func TestEvaluatePanicDenies(t *testing.T) {
	rule := Predicate{Fn: func(Context) bool {
		panic("boom")
	}}
	res := Evaluate(rule, Context{})
	assert.False(t, res.Allowed)

	filtered := Filtered{Fn: func(Context) query.Where {
		var m map[string]string
		m["x"] = "y" // nil map write
		return nil
	}}
	res = Evaluate(filtered, Context{})
	assert.False(t, res.Allowed)
}
