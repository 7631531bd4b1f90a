package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds an adapter from settings
type Constructor func(Settings) (Provider, error)

// Registry resolves adapters by configuration name
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register attaches or replaces the constructor for name
func (r *Registry) Register(name string, ctor Constructor) {
	if ctor == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// New builds the adapter registered under name
func (r *Registry) New(name string, settings Settings) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider not specified")
	}

	r.mu.RLock()
	ctor := r.constructors[name]
	r.mu.RUnlock()
	if ctor == nil {
		return nil, fmt.Errorf("provider %q is not registered (known: %v)", name, r.Names())
	}

	p, err := ctor(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", name, err)
	}
	return p, nil
}

// Names lists registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
