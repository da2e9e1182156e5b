// Package config loads collection and global declarations from CUE files.
//
// CUE gives declarations what raw struct literals cannot: constraints and
// defaults checked before the engine ever sees a config, with positioned
// error messages. Access rules in CUE are limited to constant booleans;
// predicate and row-level rules are Go code and get attached after loading.
//
// Declaration shape:
//
//	collections: posts: {
//		fields: [
//			{name: "title", type: "text", required: true, maxLength: 120},
//			{name: "status", type: "select", options: ["draft", "live"]},
//		]
//		versions: {drafts: true, maxPerDoc: 25}
//		access: {create: true, update: false}
//		indexes: [{fields: ["title"], unique: true}]
//	}
//
//	globals: "site-settings": {
//		fields: [{name: "siteName", type: "text", default: "Momentum"}]
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/momentum/internal/access"
	"github.com/roach88/momentum/internal/schema"
)

// LoadError is a positioned configuration error.
type LoadError struct {
	Path    string // CUE path of the failing declaration
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Path, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result holds everything a config directory declared.
type Result struct {
	Collections []*schema.Collection
	Globals     []*schema.Global
	FileCount   int
}

// LoadDir loads every .cue file in a directory and compiles the declared
// collections and globals. Files are concatenated into one CUE instance, so
// declarations may be split across files.
func LoadDir(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Message: fmt.Sprintf("config directory not found: %s", dir)}
	}
	if err != nil {
		return nil, fmt.Errorf("stat config dir: %w", err)
	}
	if !info.IsDir() {
		return nil, &LoadError{Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("glob config dir: %w", err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, &LoadError{Message: fmt.Sprintf("no .cue files in %s", dir)}
	}

	var combined []byte
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		combined = append(combined, raw...)
		combined = append(combined, '\n')
	}

	res, err := LoadBytes(combined)
	if err != nil {
		return nil, err
	}
	res.FileCount = len(paths)
	return res, nil
}

// LoadBytes compiles declarations from raw CUE source.
func LoadBytes(src []byte) (*Result, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src)
	if err := v.Err(); err != nil {
		return nil, &LoadError{Message: err.Error()}
	}
	return compile(v)
}

func compile(v cue.Value) (*Result, error) {
	res := &Result{}

	colRoot := v.LookupPath(cue.ParsePath("collections"))
	if colRoot.Exists() {
		iter, err := colRoot.Fields()
		if err != nil {
			return nil, &LoadError{Path: "collections", Message: err.Error(), Pos: colRoot.Pos()}
		}
		for iter.Next() {
			col, err := compileCollection(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			res.Collections = append(res.Collections, col)
		}
	}

	globalRoot := v.LookupPath(cue.ParsePath("globals"))
	if globalRoot.Exists() {
		iter, err := globalRoot.Fields()
		if err != nil {
			return nil, &LoadError{Path: "globals", Message: err.Error(), Pos: globalRoot.Pos()}
		}
		for iter.Next() {
			g, err := compileGlobal(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			res.Globals = append(res.Globals, g)
		}
	}

	for _, col := range res.Collections {
		if problems := col.Validate(); len(problems) > 0 {
			return nil, &LoadError{Path: "collections." + col.Slug, Message: problems[0].String()}
		}
	}
	for _, g := range res.Globals {
		if problems := g.Validate(); len(problems) > 0 {
			return nil, &LoadError{Path: "globals." + g.Slug, Message: problems[0].String()}
		}
	}

	return res, nil
}

func compileCollection(slug string, v cue.Value) (*schema.Collection, error) {
	col := schema.NewCollection(slug)
	path := "collections." + slug

	fields, err := parseFields(path, v.LookupPath(cue.ParsePath("fields")))
	if err != nil {
		return nil, err
	}
	col.Fields = fields

	if tsVal := v.LookupPath(cue.ParsePath("timestamps")); tsVal.Exists() {
		ts, err := tsVal.Bool()
		if err != nil {
			return nil, &LoadError{Path: path + ".timestamps", Message: err.Error(), Pos: tsVal.Pos()}
		}
		col.Timestamps = ts
	}

	if verVal := v.LookupPath(cue.ParsePath("versions")); verVal.Exists() {
		settings := &schema.VersionSettings{}
		if d := verVal.LookupPath(cue.ParsePath("drafts")); d.Exists() {
			if settings.Drafts, err = d.Bool(); err != nil {
				return nil, &LoadError{Path: path + ".versions.drafts", Message: err.Error(), Pos: d.Pos()}
			}
		}
		if m := verVal.LookupPath(cue.ParsePath("maxPerDoc")); m.Exists() {
			max, err := m.Int64()
			if err != nil {
				return nil, &LoadError{Path: path + ".versions.maxPerDoc", Message: err.Error(), Pos: m.Pos()}
			}
			settings.MaxPerDoc = int(max)
		}
		col.Versions = settings
	}

	if accVal := v.LookupPath(cue.ParsePath("access")); accVal.Exists() {
		rules, err := parseAccess(path, accVal)
		if err != nil {
			return nil, err
		}
		col.Access = rules
	}

	if idxVal := v.LookupPath(cue.ParsePath("indexes")); idxVal.Exists() {
		indexes, err := parseIndexes(path, idxVal)
		if err != nil {
			return nil, err
		}
		col.Indexes = indexes
	}

	return col, nil
}

func compileGlobal(slug string, v cue.Value) (*schema.Global, error) {
	path := "globals." + slug
	fields, err := parseFields(path, v.LookupPath(cue.ParsePath("fields")))
	if err != nil {
		return nil, err
	}

	g := &schema.Global{Slug: slug, Fields: fields}

	if accVal := v.LookupPath(cue.ParsePath("access")); accVal.Exists() {
		rules, err := parseAccess(path, accVal)
		if err != nil {
			return nil, err
		}
		g.Access = rules
	}
	return g, nil
}

func parseFields(path string, v cue.Value) ([]schema.Field, error) {
	if !v.Exists() {
		return nil, &LoadError{Path: path, Message: "fields is required"}
	}

	iter, err := v.List()
	if err != nil {
		return nil, &LoadError{Path: path + ".fields", Message: err.Error(), Pos: v.Pos()}
	}

	var fields []schema.Field
	for i := 0; iter.Next(); i++ {
		f, err := parseField(fmt.Sprintf("%s.fields[%d]", path, i), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(path string, v cue.Value) (schema.Field, error) {
	var f schema.Field

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return f, &LoadError{Path: path, Message: "type is required", Pos: v.Pos()}
	}
	typeStr, err := typeVal.String()
	if err != nil {
		return f, &LoadError{Path: path + ".type", Message: err.Error(), Pos: typeVal.Pos()}
	}
	f.Type = schema.FieldType(typeStr)

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		if f.Name, err = nameVal.String(); err != nil {
			return f, &LoadError{Path: path + ".name", Message: err.Error(), Pos: nameVal.Pos()}
		}
	} else if !f.Type.LayoutOnly() {
		return f, &LoadError{Path: path, Message: "name is required", Pos: v.Pos()}
	}

	if reqVal := v.LookupPath(cue.ParsePath("required")); reqVal.Exists() {
		if f.Required, err = reqVal.Bool(); err != nil {
			return f, &LoadError{Path: path + ".required", Message: err.Error(), Pos: reqVal.Pos()}
		}
	}

	if defVal := v.LookupPath(cue.ParsePath("default")); defVal.Exists() {
		var def any
		if err := defVal.Decode(&def); err != nil {
			return f, &LoadError{Path: path + ".default", Message: err.Error(), Pos: defVal.Pos()}
		}
		f.Default = def
	}

	f.MinLength = intPtr(v, "minLength")
	f.MaxLength = intPtr(v, "maxLength")
	f.Min = floatPtr(v, "min")
	f.Max = floatPtr(v, "max")
	f.Step = floatPtr(v, "step")
	f.MinRows = intPtr(v, "minRows")
	f.MaxRows = intPtr(v, "maxRows")

	if optVal := v.LookupPath(cue.ParsePath("options")); optVal.Exists() {
		iter, err := optVal.List()
		if err != nil {
			return f, &LoadError{Path: path + ".options", Message: err.Error(), Pos: optVal.Pos()}
		}
		for iter.Next() {
			opt, err := iter.Value().String()
			if err != nil {
				return f, &LoadError{Path: path + ".options", Message: err.Error(), Pos: optVal.Pos()}
			}
			f.Options = append(f.Options, opt)
		}
	}

	if relVal := v.LookupPath(cue.ParsePath("relationTo")); relVal.Exists() {
		if f.RelationTo, err = relVal.String(); err != nil {
			return f, &LoadError{Path: path + ".relationTo", Message: err.Error(), Pos: relVal.Pos()}
		}
	}

	if childVal := v.LookupPath(cue.ParsePath("fields")); childVal.Exists() {
		children, err := parseFields(path, childVal)
		if err != nil {
			return f, err
		}
		f.Fields = children
	}

	return f, nil
}

func parseAccess(path string, v cue.Value) (access.Rules, error) {
	var rules access.Rules

	for _, op := range []string{"read", "create", "update", "delete"} {
		opVal := v.LookupPath(cue.ParsePath(op))
		if !opVal.Exists() {
			continue
		}
		allowed, err := opVal.Bool()
		if err != nil {
			return rules, &LoadError{Path: path + ".access." + op, Message: "must be a constant boolean in CUE; attach predicate rules in Go", Pos: opVal.Pos()}
		}

		var rule access.Rule
		if allowed {
			rule = access.AlwaysAllow{}
		} else {
			rule = access.AlwaysDeny{}
		}
		switch op {
		case "read":
			rules.Read = rule
		case "create":
			rules.Create = rule
		case "update":
			rules.Update = rule
		case "delete":
			rules.Delete = rule
		}
	}
	return rules, nil
}

func parseIndexes(path string, v cue.Value) ([]schema.Index, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &LoadError{Path: path + ".indexes", Message: err.Error(), Pos: v.Pos()}
	}

	var indexes []schema.Index
	for iter.Next() {
		var idx schema.Index
		fieldsVal := iter.Value().LookupPath(cue.ParsePath("fields"))
		if fieldsVal.Exists() {
			fIter, err := fieldsVal.List()
			if err != nil {
				return nil, &LoadError{Path: path + ".indexes", Message: err.Error(), Pos: fieldsVal.Pos()}
			}
			for fIter.Next() {
				name, err := fIter.Value().String()
				if err != nil {
					return nil, &LoadError{Path: path + ".indexes", Message: err.Error(), Pos: fieldsVal.Pos()}
				}
				idx.Fields = append(idx.Fields, name)
			}
		}
		if uVal := iter.Value().LookupPath(cue.ParsePath("unique")); uVal.Exists() {
			if idx.Unique, err = uVal.Bool(); err != nil {
				return nil, &LoadError{Path: path + ".indexes", Message: err.Error(), Pos: uVal.Pos()}
			}
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

func intPtr(v cue.Value, field string) *int {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return nil
	}
	i := int(n)
	return &i
}

func floatPtr(v cue.Value, field string) *float64 {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	f, err := fv.Float64()
	if err != nil {
		return nil
	}
	return &f
}
