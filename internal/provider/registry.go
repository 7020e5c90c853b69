package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
)

// Factory constructs a concrete provider with a freshly acquired browser
// session
type Factory func(ctx context.Context, launcher browser.Launcher, opts ...Option) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a provider available under the given name. Concrete
// drivers call this from an init function.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New constructs the named provider. Selection is by explicit name, not
// reflection; unknown names are a typed error.
func New(ctx context.Context, name string, launcher browser.Launcher, opts ...Option) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, Names())
	}
	return factory(ctx, launcher, opts...), nil
}

// Names returns the registered provider names in sorted order
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
