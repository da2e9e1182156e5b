package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	doc := map[string]any{
		"title":  "hello",
		"views":  float64(10),
		"status": "live",
	}

	tests := []struct {
		name  string
		where Where
		want  bool
	}{
		{"nil matches everything", nil, true},
		{"eq match", Eq{Field: "title", Value: "hello"}, true},
		{"eq mismatch", Eq{Field: "title", Value: "goodbye"}, false},
		{"eq absent field", Eq{Field: "missing", Value: "x"}, false},
		{"eq numeric widening", Eq{Field: "views", Value: 10}, true},
		{"eq numeric mismatch", Eq{Field: "views", Value: 11}, false},
		{"in match", In{Field: "status", Values: []any{"draft", "live"}}, true},
		{"in mismatch", In{Field: "status", Values: []any{"draft"}}, false},
		{"in widened number", In{Field: "views", Values: []any{5, 10}}, true},
		{"lt", Cmp{Field: "views", Op: OpLT, Value: 11}, true},
		{"lt equal", Cmp{Field: "views", Op: OpLT, Value: 10}, false},
		{"lte equal", Cmp{Field: "views", Op: OpLTE, Value: 10}, true},
		{"gt", Cmp{Field: "views", Op: OpGT, Value: 9}, true},
		{"gte", Cmp{Field: "views", Op: OpGTE, Value: 10}, true},
		{"string ordering", Cmp{Field: "title", Op: OpGT, Value: "abc"}, true},
		{"mixed types never order", Cmp{Field: "title", Op: OpGT, Value: 5}, false},
		{"and all match", And{Conds: []Where{
			Eq{Field: "title", Value: "hello"},
			Cmp{Field: "views", Op: OpGTE, Value: 10},
		}}, true},
		{"and one fails", And{Conds: []Where{
			Eq{Field: "title", Value: "hello"},
			Eq{Field: "status", Value: "draft"},
		}}, false},
		{"empty and matches", And{}, true},
		{"or one matches", Or{Conds: []Where{
			Eq{Field: "status", Value: "draft"},
			Eq{Field: "status", Value: "live"},
		}}, true},
		{"empty or matches nothing", Or{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.where, doc))
		})
	}
}

func TestIntersect(t *testing.T) {
	a := Eq{Field: "owner", Value: "u1"}
	b := Eq{Field: "status", Value: "live"}

	assert.Nil(t, Intersect(nil, nil))
	assert.Equal(t, Where(a), Intersect(a, nil))
	assert.Equal(t, Where(b), Intersect(nil, b))

	both := Intersect(a, b)
	doc := map[string]any{"owner": "u1", "status": "live"}
	assert.True(t, Matches(both, doc))

	doc["status"] = "draft"
	assert.False(t, Matches(both, doc))
}
