package runloop

import (
	"sync"

	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// ProviderIterator provides round-robin iteration over providers
type ProviderIterator struct {
	providers []models.ProviderDefinition
	current   int
	mu        sync.Mutex
}

// NewProviderIterator creates a new provider iterator
func NewProviderIterator(providers []models.ProviderDefinition) *ProviderIterator {
	return &ProviderIterator{
		providers: providers,
		current:   0,
	}
}

// Next returns the next provider to run in round-robin fashion
func (i *ProviderIterator) Next() models.ProviderDefinition {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.providers) == 0 {
		return models.ProviderDefinition{}
	}

	def := i.providers[i.current]
	i.current = (i.current + 1) % len(i.providers)
	return def
}

// Count returns the total number of providers
func (i *ProviderIterator) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.providers)
}

// Reset resets the iterator to the first provider
func (i *ProviderIterator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = 0
}
