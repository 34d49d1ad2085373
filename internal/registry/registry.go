// Package registry provides a static, configuration-backed provider
// registry. It stands in for the vendor store's provider table, which the
// aggregation layer only ever consumes through lookup-by-name.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
)

// Static is an in-memory ProviderRegistry keyed by lowercase name.
type Static struct {
	mu        sync.RWMutex
	providers map[string]*courier.ProviderConfig
}

// NewStatic creates a registry from provider configurations.
func NewStatic(providers ...*courier.ProviderConfig) *Static {
	r := &Static{providers: make(map[string]*courier.ProviderConfig, len(providers))}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name)] = p
	}
	return r
}

// Register adds or replaces a provider.
func (r *Static) Register(p *courier.ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name)] = p
}

// FindActiveProvider returns the configuration for an active provider,
// matched case-insensitively.
func (r *Static) FindActiveProvider(ctx context.Context, name string) (*courier.ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(name)]
	if !ok || !p.IsActive {
		return nil, fmt.Errorf("%w: %s", courier.ErrProviderNotFound, name)
	}
	return p, nil
}

// ActiveProviderNames returns the names of all active providers.
func (r *Static) ActiveProviderNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name, p := range r.providers {
		if p.IsActive {
			names = append(names, name)
		}
	}
	return names, nil
}

var _ courier.ProviderRegistry = (*Static)(nil)
