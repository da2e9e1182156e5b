package engine

import (
	"context"
	"fmt"

	"github.com/roach88/momentum/internal/access"
	"github.com/roach88/momentum/internal/hooks"
	"github.com/roach88/momentum/internal/schema"
	"github.com/roach88/momentum/internal/storage"
)

// Global returns the operation surface for a declared global.
func (e *Engine) Global(slug string) (*GlobalAPI, error) {
	g, ok := e.globals[slug]
	if !ok {
		return nil, &GlobalNotFoundError{Slug: slug}
	}
	return &GlobalAPI{engine: e, global: g}, nil
}

// GlobalAPI is the singleton-document surface. A global always exists once
// declared: the first read creates it from field defaults.
type GlobalAPI struct {
	engine *Engine
	global *schema.Global
}

// Get returns the global, creating it on first read.
func (g *GlobalAPI) Get(ctx context.Context) (storage.Document, error) {
	res := access.Evaluate(g.global.Access.For(access.OpRead), access.Context{User: g.engine.identity})
	if !res.Allowed {
		return nil, &AccessDeniedError{Collection: g.global.Slug, Operation: string(access.OpRead)}
	}

	doc, err := g.engine.adapter.FindGlobal(ctx, g.global.Slug)
	if err != nil {
		return nil, fmt.Errorf("get global %q: %w", g.global.Slug, err)
	}

	if doc == nil {
		doc = g.defaults()
		now := timestamp(g.engine.clock.Now())
		doc["createdAt"] = now
		doc["updatedAt"] = now
		if doc, err = g.engine.adapter.UpdateGlobal(ctx, g.global.Slug, doc); err != nil {
			return nil, fmt.Errorf("init global %q: %w", g.global.Slug, err)
		}
		g.engine.log.Info("global auto-created", "slug", g.global.Slug)
	}

	return hooks.RunAfterRead(ctx, g.global.Hooks.AfterRead, hooks.Args{
		Collection: g.global.Slug,
		Operation:  access.OpRead,
		Doc:        doc,
		User:       g.engine.identity,
	})
}

// Update patches the global.
func (g *GlobalAPI) Update(ctx context.Context, data map[string]any) (storage.Document, error) {
	res := access.Evaluate(g.global.Access.For(access.OpUpdate), access.Context{User: g.engine.identity, Data: data})
	if !res.Allowed {
		return nil, &AccessDeniedError{Collection: g.global.Slug, Operation: string(access.OpUpdate)}
	}

	previous, err := g.engine.adapter.FindGlobal(ctx, g.global.Slug)
	if err != nil {
		return nil, fmt.Errorf("update global %q: %w", g.global.Slug, err)
	}

	patch := stripReserved(data)

	// Globals carry the same field constraints as collections: a patch may
	// omit fields but never violate one it carries.
	var fieldErrs []FieldError
	validateFieldSet(g.global.Fields, "", patch, false, &fieldErrs)
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Collection: g.global.Slug, Errors: fieldErrs}
	}

	patch, err = hooks.RunBeforeChange(ctx, g.global.Hooks.BeforeChange, hooks.Args{
		Collection: g.global.Slug,
		Operation:  access.OpUpdate,
		Doc:        patch,
		Previous:   previous,
		User:       g.engine.identity,
	})
	if err != nil {
		return nil, fmt.Errorf("update global %q: %w", g.global.Slug, err)
	}

	patch["updatedAt"] = timestamp(g.engine.clock.Now())

	doc, err := g.engine.adapter.UpdateGlobal(ctx, g.global.Slug, patch)
	if err != nil {
		return nil, fmt.Errorf("update global %q: %w", g.global.Slug, err)
	}

	err = hooks.RunAfterChange(ctx, g.global.Hooks.AfterChange, hooks.Args{
		Collection: g.global.Slug,
		Operation:  access.OpUpdate,
		Doc:        doc,
		Previous:   previous,
		User:       g.engine.identity,
	})
	if err != nil {
		return nil, fmt.Errorf("update global %q: %w", g.global.Slug, err)
	}
	return doc, nil
}

// defaults builds the initial document from declared field defaults.
func (g *GlobalAPI) defaults() storage.Document {
	doc := storage.Document{}
	for _, f := range g.global.Fields {
		if f.Default != nil {
			doc[f.Name] = f.Default
		}
	}
	return doc
}
