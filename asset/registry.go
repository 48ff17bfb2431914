package asset

import (
	"context"
	"sync"
)

// Registry is the asset index queried by the resolver.
type Registry interface {
	// AddAssets replaces the entries of every package named in assets.
	AddAssets(ctx context.Context, assets []Data) error
	AssetsByPackage(ctx context.Context, pkg string) ([]Data, error)
}

var _ Registry = &MemoryRegistry{}

type MemoryRegistry struct {
	mu        sync.RWMutex
	byPackage map[string][]Data
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byPackage: make(map[string][]Data)}
}

func (r *MemoryRegistry) AddAssets(_ context.Context, assets []Data) error {
	grouped := groupByPackage(assets)
	r.mu.Lock()
	defer r.mu.Unlock()
	for pkg, list := range grouped {
		r.byPackage[pkg] = list
	}
	return nil
}

func (r *MemoryRegistry) AssetsByPackage(_ context.Context, pkg string) ([]Data, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byPackage[pkg]
	out := make([]Data, len(list))
	copy(out, list)
	return out, nil
}

// Len returns the number of indexed packages.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPackage)
}

func groupByPackage(assets []Data) map[string][]Data {
	grouped := make(map[string][]Data)
	for _, a := range assets {
		grouped[a.PackageName] = append(grouped[a.PackageName], a)
	}
	return grouped
}
