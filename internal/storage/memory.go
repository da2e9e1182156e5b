package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/momentum/internal/query"
)

// Memory is an in-process Adapter. Documents are deep-copied on the way in
// and out so callers can never mutate stored state through a returned map.
//
// Find returns documents in insertion order, which keeps pagination
// deterministic without an index.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]map[string]Document // collection -> id -> doc
	order   map[string][]string            // collection -> ids in insertion order
	globals map[string]Document
}

var _ Adapter = (*Memory)(nil)

// NewMemory creates an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]map[string]Document),
		order:   make(map[string][]string),
		globals: make(map[string]Document),
	}
}

func (m *Memory) Find(ctx context.Context, collection string, where query.Where) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Document{}
	for _, id := range m.order[collection] {
		doc := m.docs[collection][id]
		if query.Matches(where, doc) {
			out = append(out, copyDoc(doc))
		}
	}
	return out, nil
}

func (m *Memory) FindByID(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, nil
	}
	return copyDoc(doc), nil
}

func (m *Memory) Create(ctx context.Context, collection string, data Document) (Document, error) {
	id, ok := data["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("create in %q: document has no id", collection)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]Document)
	}
	if _, exists := m.docs[collection][id]; exists {
		return nil, fmt.Errorf("create in %q: duplicate id %q", collection, id)
	}

	stored := copyDoc(data)
	m.docs[collection][id] = stored
	m.order[collection] = append(m.order[collection], id)
	return copyDoc(stored), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, data Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, nil
	}

	for k, v := range data {
		if k == "id" {
			continue
		}
		doc[k] = copyValue(v)
	}
	return copyDoc(doc), nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[collection][id]; !ok {
		return false, nil
	}
	delete(m.docs[collection], id)

	ids := m.order[collection]
	for i, existing := range ids {
		if existing == id {
			m.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) FindGlobal(ctx context.Context, slug string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.globals[slug]
	if !ok {
		return nil, nil
	}
	return copyDoc(g), nil
}

func (m *Memory) UpdateGlobal(ctx context.Context, slug string, data Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.globals[slug]
	if !ok {
		g = make(Document, len(data))
		m.globals[slug] = g
	}
	for k, v := range data {
		g[k] = copyValue(v)
	}
	return copyDoc(g), nil
}

// copyDoc deep-copies a document. Values are the JSON-shaped kinds
// (maps, slices, scalars); anything else is shared by reference.
func copyDoc(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyDoc(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
