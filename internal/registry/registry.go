// Package registry maps content-type names to their schemas. It replaces any
// runtime scanning: types are registered once at startup and handed to the
// orchestrator by reference.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
)

type Registry struct {
	mu    sync.RWMutex
	types map[string]palimpsest.ContentType
}

func New() *Registry {
	return &Registry{types: make(map[string]palimpsest.ContentType)}
}

// Register adds a content type. Registering the same name twice is a
// programming error and fails loudly.
func (r *Registry) Register(ct palimpsest.ContentType) error {
	if ct.Name == "" {
		return fmt.Errorf("content type name must not be empty")
	}
	if ct.SchemaVersion < 1 {
		return fmt.Errorf("content type %q must declare a schema version >= 1", ct.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[ct.Name]; exists {
		return fmt.Errorf("content type %q is already registered", ct.Name)
	}
	r.types[ct.Name] = ct
	return nil
}

// Get resolves a content type by collection name.
func (r *Registry) Get(name string) (palimpsest.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[name]
	if !ok {
		return palimpsest.ContentType{}, domain.NotFoundError{Resource: fmt.Sprintf("content type %q", name)}
	}
	return ct, nil
}

// Names lists registered collection names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
