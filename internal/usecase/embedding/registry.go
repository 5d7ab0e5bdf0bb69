package embedding

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Registry maps variants to their embedders.
type Registry struct {
	mu        sync.RWMutex
	embedders map[variant.Variant]domain.Embedder
}

// NewRegistry creates a registry from the given embedders. Later entries
// replace earlier ones for the same variant.
func NewRegistry(embedders ...domain.Embedder) *Registry {
	r := &Registry{embedders: make(map[variant.Variant]domain.Embedder, len(embedders))}
	for _, e := range embedders {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the embedder for its variant.
func (r *Registry) Register(e domain.Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[e.Variant()] = e
}

// Get returns the embedder for v.
func (r *Registry) Get(v variant.Variant) (domain.Embedder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.embedders[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", domain.ErrUnknownVariant, v)
	}
	return e, nil
}

// Variants lists the registered variants in evaluation order.
func (r *Registry) Variants() []variant.Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]variant.Variant, 0, len(r.embedders))
	for _, v := range variant.All() {
		if _, ok := r.embedders[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
