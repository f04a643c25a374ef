package adapters

import (
	"strings"

	"github.com/smartkeys/keyserver/internal/payment/domain"
)

// Registry indexes webhook adapters by provider name.
type Registry struct {
	adapters map[string]domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	index := make(map[string]domain.Adapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		index[strings.ToLower(adapter.Provider())] = adapter
	}
	return &Registry{adapters: index}
}

func (r *Registry) Get(provider string) (domain.Adapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return adapter, ok
}
