package scripts

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ParameterStore returns the parameters of a script ordered by ID ascending.
type ParameterStore interface {
	Parameters(ctx context.Context, script Identity) ([]Parameter, error)
}

// Catalog resolves scripts by primary key.
type Catalog interface {
	Script(ctx context.Context, id int64) (Script, error)
	Scripts(ctx context.Context) ([]Script, error)
}

// MemoryStore is an in-process ParameterStore and Catalog, typically seeded
// from definition files via LoadFS.
type MemoryStore struct {
	mu      sync.RWMutex
	scripts map[int64]Script
	params  map[int64][]Parameter
}

var (
	_ ParameterStore = (*MemoryStore)(nil)
	_ Catalog        = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scripts: make(map[int64]Script),
		params:  make(map[int64][]Parameter),
	}
}

// Put registers a script and replaces its parameter list. Parameters are
// re-keyed to the script and kept ordered by ID.
func (s *MemoryStore) Put(script Script, params ...Parameter) error {
	if script.ID <= 0 {
		return fmt.Errorf("scripts: script id must be positive, got %d", script.ID)
	}

	ordered := make([]Parameter, len(params))
	copy(ordered, params)
	seen := make(map[string]struct{}, len(ordered))
	for idx := range ordered {
		ordered[idx].ScriptID = script.ID
		if _, dup := seen[ordered[idx].Slug]; dup {
			return fmt.Errorf("scripts: script %d declares parameter %q twice", script.ID, ordered[idx].Slug)
		}
		seen[ordered[idx].Slug] = struct{}{}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[script.ID] = script
	s.params[script.ID] = ordered
	return nil
}

// Parameters implements ParameterStore.
func (s *MemoryStore) Parameters(ctx context.Context, script Identity) ([]Parameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if script == nil {
		return nil, fmt.Errorf("scripts: script is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	params := s.params[script.PrimaryKey()]
	out := make([]Parameter, len(params))
	copy(out, params)
	return out, nil
}

// Script implements Catalog.
func (s *MemoryStore) Script(ctx context.Context, id int64) (Script, error) {
	if err := ctx.Err(); err != nil {
		return Script{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	script, ok := s.scripts[id]
	if !ok {
		return Script{}, fmt.Errorf("%w: %d", ErrScriptNotFound, id)
	}
	return script, nil
}

// Scripts implements Catalog, ordered by ID.
func (s *MemoryStore) Scripts(ctx context.Context) ([]Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Script, 0, len(s.scripts))
	for _, script := range s.scripts {
		out = append(out, script)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
