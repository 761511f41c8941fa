package table

import (
	"sort"
	"sync"

	"github.com/bisegni/liveset/pkg/errs"
)

// Registry maps object type names to their backing tables. It is the
// lookup point for constructing results by type name.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register adds a table under its schema's object type name.
func (r *Registry) Register(t *Table) error {
	if t == nil {
		return errs.Argument("cannot register a nil table")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.tables[name]; exists {
		return errs.Argument("object type '%s' is already registered", name)
	}
	r.tables[name] = t
	return nil
}

// Lookup resolves an object type name to its table.
func (r *Registry) Lookup(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, errs.TypeNotFound(name)
	}
	return t, nil
}

// Remove drops a type from the registry. Results already constructed over
// the table keep working; only name-based lookup is affected.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[name]; !ok {
		return errs.TypeNotFound(name)
	}
	delete(r.tables, name)
	return nil
}

// Names returns the registered object type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
