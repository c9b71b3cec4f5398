package asset

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe registry of known tokens.
type Registry struct {
	byID     map[Identifier]*Asset
	byTicker map[string][]*Asset // several issuances may share a ticker
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[Identifier]*Asset),
		byTicker: make(map[string][]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if an asset with the same identifier is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.ID()))
	}

	r.byID[a.ID()] = a
	r.byTicker[a.Symbol()] = append(r.byTicker[a.Symbol()], a)
}

// Get retrieves an asset by identifier.
func (r *Registry) Get(id Identifier) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// Decimals returns the registered decimals of id.
func (r *Registry) Decimals(id Identifier) (uint8, bool) {
	a, ok := r.Get(id)
	if !ok {
		return 0, false
	}
	return a.Decimals(), true
}

// GetByTicker returns the assets sharing ticker.
func (r *Registry) GetByTicker(ticker string) []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assets := r.byTicker[ticker]
	if len(assets) == 0 {
		return nil
	}

	result := make([]*Asset, len(assets))
	copy(result, assets)
	return result
}

// Resolve accepts a full identifier or an unambiguous ticker.
func (r *Registry) Resolve(s string) (*Asset, bool) {
	if a, ok := r.Get(Identifier(s)); ok {
		return a, true
	}
	if assets := r.GetByTicker(s); len(assets) == 1 {
		return assets[0], true
	}
	return nil, false
}

// All returns all registered assets ordered by identifier.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
