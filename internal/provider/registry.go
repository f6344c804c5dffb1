package provider

import (
	"fmt"
	"sort"

	"MaturityScanner/internal/ports"
)

// Registry keeps the closed set of provider implementations registered at
// startup, keyed by provider name.
type Registry struct {
	providers map[string]ports.Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]ports.Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(p ports.Provider) {
	if r.providers == nil {
		r.providers = map[string]ports.Provider{}
	}
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("provider %s is not registered", name)
}

// Ordered returns all providers sorted by (tier asc, name asc) so the tier
// scan walks them in a stable order regardless of registration order.
func (r *Registry) Ordered() []ports.Provider {
	out := make([]ports.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier() != out[j].Tier() {
			return out[i].Tier() < out[j].Tier()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Names lists registered provider names sorted by tier then name.
func (r *Registry) Names() []string {
	ordered := r.Ordered()
	names := make([]string, len(ordered))
	for i, p := range ordered {
		names[i] = p.Name()
	}
	return names
}
