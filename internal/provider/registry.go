package provider

import (
	"fmt"
	"sort"
)

// Registry is an immutable set of providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry. Nil providers and duplicate names are
// rejected.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("nil provider")
		}
		name := p.Name()
		if name == "" {
			return nil, fmt.Errorf("provider has an empty name")
		}
		if _, dup := r.providers[name]; dup {
			return nil, fmt.Errorf("provider %s registered twice", name)
		}
		r.providers[name] = p
	}
	return r, nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the capabilities of every registered provider.
func (r *Registry) Capabilities() map[string]Capabilities {
	caps := make(map[string]Capabilities, len(r.providers))
	for name, p := range r.providers {
		caps[name] = p.Capabilities()
	}
	return caps
}
