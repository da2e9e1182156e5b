package migrate

import "strings"

// typeSynonyms maps verbose or historical spellings to one canonical form.
// Keys and values are lowercase; parameter lists are handled separately.
var typeSynonyms = map[string]string{
	"character varying":           "varchar",
	"char varying":                "varchar",
	"character":                   "char",
	"timestamp with time zone":    "timestamptz",
	"timestamp without time zone": "timestamp",
	"time with time zone":         "timetz",
	"time without time zone":      "time",
	"int":                         "integer",
	"int4":                        "integer",
	"int8":                        "bigint",
	"int2":                        "smallint",
	"serial4":                     "serial",
	"serial8":                     "bigserial",
	"bool":                        "boolean",
	"float4":                      "real",
	"float8":                      "double precision",
	"decimal":                     "numeric",
}

// NormalizeColumnType reduces a column type to a canonical lowercase form so
// cosmetic dialect spellings compare equal:
//
//	NormalizeColumnType("character varying(255)", d) == NormalizeColumnType("VARCHAR(255)", d)
//	NormalizeColumnType("TIMESTAMP WITH TIME ZONE", d) == NormalizeColumnType("timestamptz", d)
//
// Parameters (lengths, precisions) are preserved: varchar(255) and
// varchar(100) stay distinct.
func NormalizeColumnType(columnType string, dialect Dialect) string {
	t := strings.ToLower(strings.TrimSpace(columnType))
	t = strings.Join(strings.Fields(t), " ")

	base, params := splitParams(t)
	if canonical, ok := typeSynonyms[base]; ok {
		base = canonical
	}

	if params == "" {
		return base
	}
	return base + "(" + params + ")"
}

// AreTypesCompatible reports whether two column types are the same type
// once normalized - i.e. whether a live column of type a satisfies a
// declared column of type b without a migration.
func AreTypesCompatible(a, b string, dialect Dialect) bool {
	return NormalizeColumnType(a, dialect) == NormalizeColumnType(b, dialect)
}

// splitParams separates "varchar(255)" into ("varchar", "255").
// Types without a parameter list return an empty params string.
func splitParams(t string) (base, params string) {
	open := strings.IndexByte(t, '(')
	if open < 0 {
		return t, ""
	}
	closeIdx := strings.LastIndexByte(t, ')')
	if closeIdx <= open {
		return t, ""
	}
	base = strings.TrimSpace(t[:open])
	params = strings.ReplaceAll(t[open+1:closeIdx], " ", "")
	return base, params
}
