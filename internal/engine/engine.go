package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/momentum/internal/access"
	"github.com/roach88/momentum/internal/events"
	"github.com/roach88/momentum/internal/hooks"
	"github.com/roach88/momentum/internal/query"
	"github.com/roach88/momentum/internal/schema"
	"github.com/roach88/momentum/internal/storage"
)

// Pagination bounds. A zero limit falls back to DefaultLimit; anything above
// MaxLimit is clamped.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query shapes a find operation.
type Query struct {
	// Where is the caller's explicit filter. It is intersected with the
	// collection's defaultWhere; it can narrow the scope, never widen it.
	Where query.Where

	// Page is 1-based. Zero means page 1.
	Page int

	// Limit is documents per page, clamped to [1, MaxLimit].
	Limit int

	// Sort names a field to sort by; a leading "-" sorts descending.
	// Empty keeps the adapter's stable order.
	Sort string
}

// Result is the list envelope for find operations.
type Result struct {
	Docs        []storage.Document `json:"docs"`
	TotalDocs   int                `json:"totalDocs"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"totalPages"`
	Limit       int                `json:"limit"`
	HasNextPage bool               `json:"hasNextPage"`
	HasPrevPage bool               `json:"hasPrevPage"`
}

// DeleteResult confirms a delete.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Engine orchestrates document CRUD across every registered collection.
//
// The zero identity (no user) is a valid caller: rules decide what it may
// do. WithContext binds an identity by returning a copy; the engine itself
// is never mutated after New, so one shared instance serves all requests.
type Engine struct {
	adapter     storage.Adapter
	collections map[string]*schema.Collection
	globals     map[string]*schema.Global
	bus         *events.Bus
	clock       Clock
	ids         IDGenerator
	log         *slog.Logger

	// identity is the bound requesting identity. Set only via WithContext
	// on a copy, never on the shared instance.
	identity *access.User
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides the document ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithBus attaches an event bus. Without one, mutation events are dropped.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithLogger overrides the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an engine over the adapter for the given collections and
// globals. Every config is shape-validated; any problem fails construction,
// since a malformed collection would fail every request against it anyway.
func New(adapter storage.Adapter, collections []*schema.Collection, globals []*schema.Global, opts ...Option) (*Engine, error) {
	e := &Engine{
		adapter:     adapter,
		collections: make(map[string]*schema.Collection, len(collections)),
		globals:     make(map[string]*schema.Global, len(globals)),
		clock:       SystemClock{},
		ids:         UUIDv7Generator{},
		log:         slog.Default(),
	}

	for _, col := range collections {
		if problems := col.Validate(); len(problems) > 0 {
			return nil, fmt.Errorf("invalid collection %q: %s", col.Slug, problems[0].String())
		}
		if _, dup := e.collections[col.Slug]; dup {
			return nil, fmt.Errorf("duplicate collection slug %q", col.Slug)
		}
		e.collections[col.Slug] = col
	}
	for _, g := range globals {
		if problems := g.Validate(); len(problems) > 0 {
			return nil, fmt.Errorf("invalid global %q: %s", g.Slug, problems[0].String())
		}
		if _, dup := e.globals[g.Slug]; dup {
			return nil, fmt.Errorf("duplicate global slug %q", g.Slug)
		}
		e.globals[g.Slug] = g
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// WithContext returns a copy of the engine bound to the requesting user.
// The receiver is unchanged; identity travels with the copy, not as shared
// state.
func (e *Engine) WithContext(user *access.User) *Engine {
	bound := *e
	bound.identity = user
	return &bound
}

// Adapter exposes the storage adapter for collaborators that persist
// through the same backend (version store, seed tracker).
func (e *Engine) Adapter() storage.Adapter {
	return e.adapter
}

// Bus exposes the mutation event bus, or nil when none is attached.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Collections lists the registered collection configs.
func (e *Engine) Collections() []*schema.Collection {
	out := make([]*schema.Collection, 0, len(e.collections))
	for _, c := range e.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Collection returns the CRUD surface for a registered collection.
func (e *Engine) Collection(slug string) (*CollectionAPI, error) {
	col, ok := e.collections[slug]
	if !ok {
		return nil, &UnknownCollectionError{Slug: slug}
	}
	return &CollectionAPI{engine: e, col: col}, nil
}

// MustCollection is Collection for slugs known at compile time.
// Panics on an unregistered slug.
func (e *Engine) MustCollection(slug string) *CollectionAPI {
	api, err := e.Collection(slug)
	if err != nil {
		panic(err)
	}
	return api
}

// CollectionAPI is the per-collection operation surface.
// Values are cheap; they hold only the bound engine and the config.
type CollectionAPI struct {
	engine *Engine
	col    *schema.Collection
}

// Config returns the collection's declaration.
func (c *CollectionAPI) Config() *schema.Collection {
	return c.col
}

// accessCtx builds the rule-evaluation context for the bound identity.
func (c *CollectionAPI) accessCtx(data map[string]any) access.Context {
	return access.Context{User: c.engine.identity, Data: data}
}

// scopeFor resolves the implicit filter for an operation: the collection's
// defaultWhere intersected with any row-level filter the access rule
// returned. Evaluation fails closed: a denied rule surfaces as
// AccessDeniedError before any storage traffic.
func (c *CollectionAPI) scopeFor(op access.Operation, data map[string]any) (query.Where, error) {
	actx := c.accessCtx(data)

	res := access.Evaluate(c.col.Access.For(op), actx)
	if !res.Allowed {
		return nil, &AccessDeniedError{Collection: c.col.Slug, Operation: string(op)}
	}

	scope := res.Filter
	if c.col.DefaultWhere != nil {
		scope = query.Intersect(scope, c.col.DefaultWhere(actx))
	}
	return scope, nil
}

// Find lists documents matching the caller's filter within the caller's
// scope, paginated.
func (c *CollectionAPI) Find(ctx context.Context, q Query) (Result, error) {
	scope, err := c.scopeFor(access.OpRead, nil)
	if err != nil {
		return Result{}, err
	}

	if q.Where != nil {
		if verr := query.Validate(q.Where, c.col.FieldNames()); verr != nil {
			return Result{}, &ValidationError{
				Collection: c.col.Slug,
				Errors:     []FieldError{{Field: "where", Message: verr.Error()}},
			}
		}
	}

	docs, err := c.engine.adapter.Find(ctx, c.col.Slug, query.Intersect(scope, q.Where))
	if err != nil {
		return Result{}, fmt.Errorf("find in %q: %w", c.col.Slug, err)
	}

	docs, err = c.runAfterRead(ctx, docs)
	if err != nil {
		return Result{}, err
	}

	sortDocs(docs, q.Sort)
	return paginate(docs, q.Page, q.Limit), nil
}

// FindByID returns one in-scope document. An out-of-scope document is
// reported exactly like an absent one.
func (c *CollectionAPI) FindByID(ctx context.Context, id string) (storage.Document, error) {
	scope, err := c.scopeFor(access.OpRead, nil)
	if err != nil {
		return nil, err
	}

	doc, err := c.engine.adapter.FindByID(ctx, c.col.Slug, id)
	if err != nil {
		return nil, fmt.Errorf("findById in %q: %w", c.col.Slug, err)
	}
	if doc == nil || !query.Matches(scope, doc) {
		return nil, &DocumentNotFoundError{Collection: c.col.Slug, ID: id}
	}

	docs, err := c.runAfterRead(ctx, []storage.Document{doc})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// Create validates, authorizes, and persists a new document.
func (c *CollectionAPI) Create(ctx context.Context, data map[string]any) (storage.Document, error) {
	res := access.Evaluate(c.col.Access.For(access.OpCreate), c.accessCtx(data))
	if !res.Allowed {
		return nil, &AccessDeniedError{Collection: c.col.Slug, Operation: string(access.OpCreate)}
	}

	payload := stripReserved(data)

	if fieldErrs := validatePayload(c.col, payload, true); len(fieldErrs) > 0 {
		return nil, &ValidationError{Collection: c.col.Slug, Errors: fieldErrs}
	}

	payload, err := hooks.RunBeforeChange(ctx, c.col.Hooks.BeforeChange, hooks.Args{
		Collection: c.col.Slug,
		Operation:  access.OpCreate,
		Doc:        payload,
		User:       c.engine.identity,
	})
	if err != nil {
		return nil, fmt.Errorf("create in %q: %w", c.col.Slug, err)
	}

	applyDefaults(c.col, payload)

	payload["id"] = c.engine.ids.Generate()
	if c.col.Timestamps {
		now := timestamp(c.engine.clock.Now())
		payload["createdAt"] = now
		payload["updatedAt"] = now
	}

	doc, err := c.engine.adapter.Create(ctx, c.col.Slug, payload)
	if err != nil {
		return nil, fmt.Errorf("create in %q: %w", c.col.Slug, err)
	}

	c.engine.log.Info("document created",
		"collection", c.col.Slug,
		"id", doc["id"])

	if err := c.afterMutation(ctx, access.OpCreate, doc, nil); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update patches one in-scope document. Out-of-scope is NotFound, never
// AccessDenied and never a silent success - scoping is enforced on mutation
// exactly as on read.
func (c *CollectionAPI) Update(ctx context.Context, id string, data map[string]any) (storage.Document, error) {
	scope, err := c.scopeFor(access.OpUpdate, data)
	if err != nil {
		return nil, err
	}

	existing, err := c.engine.adapter.FindByID(ctx, c.col.Slug, id)
	if err != nil {
		return nil, fmt.Errorf("update in %q: %w", c.col.Slug, err)
	}
	if existing == nil || !query.Matches(scope, existing) {
		return nil, &DocumentNotFoundError{Collection: c.col.Slug, ID: id}
	}

	patch := stripReserved(data)

	// Partial patches are legal on update: required fields are a create
	// concern, constraints apply to whatever the patch carries.
	if fieldErrs := validatePayload(c.col, patch, false); len(fieldErrs) > 0 {
		return nil, &ValidationError{Collection: c.col.Slug, Errors: fieldErrs}
	}

	patch, err = hooks.RunBeforeChange(ctx, c.col.Hooks.BeforeChange, hooks.Args{
		Collection: c.col.Slug,
		Operation:  access.OpUpdate,
		Doc:        patch,
		Previous:   existing,
		User:       c.engine.identity,
	})
	if err != nil {
		return nil, fmt.Errorf("update in %q: %w", c.col.Slug, err)
	}

	if c.col.Timestamps {
		patch["updatedAt"] = timestamp(c.engine.clock.Now())
	}

	doc, err := c.engine.adapter.Update(ctx, c.col.Slug, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update in %q: %w", c.col.Slug, err)
	}
	if doc == nil {
		// Deleted between the scope check and the write.
		return nil, &DocumentNotFoundError{Collection: c.col.Slug, ID: id}
	}

	c.engine.log.Info("document updated",
		"collection", c.col.Slug,
		"id", id)

	if err := c.afterMutation(ctx, access.OpUpdate, doc, existing); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes one in-scope document, running afterDelete (not
// afterChange) hooks.
func (c *CollectionAPI) Delete(ctx context.Context, id string) (DeleteResult, error) {
	scope, err := c.scopeFor(access.OpDelete, nil)
	if err != nil {
		return DeleteResult{}, err
	}

	existing, err := c.engine.adapter.FindByID(ctx, c.col.Slug, id)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete in %q: %w", c.col.Slug, err)
	}
	if existing == nil || !query.Matches(scope, existing) {
		return DeleteResult{}, &DocumentNotFoundError{Collection: c.col.Slug, ID: id}
	}

	if _, err := c.engine.adapter.Delete(ctx, c.col.Slug, id); err != nil {
		return DeleteResult{}, fmt.Errorf("delete in %q: %w", c.col.Slug, err)
	}

	c.engine.log.Info("document deleted",
		"collection", c.col.Slug,
		"id", id)

	err = hooks.RunAfterDelete(ctx, c.col.Hooks.AfterDelete, hooks.Args{
		Collection: c.col.Slug,
		Operation:  access.OpDelete,
		Previous:   existing,
		User:       c.engine.identity,
	})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete in %q: %w", c.col.Slug, err)
	}

	c.emit(events.AfterDelete, string(access.OpDelete), existing)
	return DeleteResult{Deleted: true, ID: id}, nil
}

// afterMutation runs afterChange hooks then fans the event out.
// Hook failures propagate to the caller; bus subscribers are on their own.
func (c *CollectionAPI) afterMutation(ctx context.Context, op access.Operation, doc, previous storage.Document) error {
	err := hooks.RunAfterChange(ctx, c.col.Hooks.AfterChange, hooks.Args{
		Collection: c.col.Slug,
		Operation:  op,
		Doc:        doc,
		Previous:   previous,
		User:       c.engine.identity,
	})
	if err != nil {
		return fmt.Errorf("%s in %q: %w", op, c.col.Slug, err)
	}

	c.emit(events.AfterChange, string(op), doc)
	return nil
}

func (c *CollectionAPI) emit(kind events.EventKind, op string, doc storage.Document) {
	if c.engine.bus == nil {
		return
	}
	c.engine.bus.Emit(events.Event{
		Collection: c.col.Slug,
		Kind:       kind,
		Operation:  op,
		Doc:        doc,
		Timestamp:  c.engine.clock.Now(),
	})
}

// runAfterRead folds each document through the afterRead pipeline.
func (c *CollectionAPI) runAfterRead(ctx context.Context, docs []storage.Document) ([]storage.Document, error) {
	if len(c.col.Hooks.AfterRead) == 0 {
		return docs, nil
	}
	out := make([]storage.Document, len(docs))
	for i, doc := range docs {
		reshaped, err := hooks.RunAfterRead(ctx, c.col.Hooks.AfterRead, hooks.Args{
			Collection: c.col.Slug,
			Operation:  access.OpRead,
			Doc:        doc,
			User:       c.engine.identity,
		})
		if err != nil {
			return nil, fmt.Errorf("read in %q: %w", c.col.Slug, err)
		}
		out[i] = reshaped
	}
	return out, nil
}

// stripReserved drops engine-stamped keys from a client payload.
// id and timestamps are never client-writable.
func stripReserved(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case "id", "createdAt", "updatedAt":
			continue
		}
		out[k] = v
	}
	return out
}

// applyDefaults fills declared defaults for fields absent from the payload.
func applyDefaults(col *schema.Collection, payload map[string]any) {
	for name := range col.FieldNames() {
		if _, present := payload[name]; present {
			continue
		}
		if f, ok := col.FieldByName(name); ok && f.Default != nil {
			payload[name] = f.Default
		}
	}
}

func sortDocs(docs []storage.Document, key string) {
	if key == "" {
		return
	}
	desc := false
	if key[0] == '-' {
		desc = true
		key = key[1:]
	}
	sort.SliceStable(docs, func(i, j int) bool {
		less := lessValue(docs[i][key], docs[j][key])
		if desc {
			return lessValue(docs[j][key], docs[i][key])
		}
		return less
	})
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	}
	return false
}

func paginate(docs []storage.Document, page, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page <= 0 {
		page = 1
	}

	total := len(docs)
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Result{
		Docs:        docs[start:end],
		TotalDocs:   total,
		Page:        page,
		TotalPages:  totalPages,
		Limit:       limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1 && total > 0,
	}
}
