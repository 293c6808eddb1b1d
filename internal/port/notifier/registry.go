package notifier

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a Notifier from its provider settings map.
type Factory func(config map[string]string) (Notifier, error)

// Registry maps provider names to factories. The zero value is ready to
// use. Adapter packages register themselves into the package default via
// init(), pulled in by blank imports in cmd/arbiter.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var defaultRegistry Registry

// Register adds a factory under name, panicking on duplicates so a
// copy-pasted provider package fails loudly at startup.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("notifier: duplicate registration for %q", name))
	}
	r.factories[name] = factory
}

// New builds the named provider. Unknown names list the registered
// providers in the error so a config typo is obvious from the log line.
func (r *Registry) New(name string, config map[string]string) (Notifier, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("notifier: unknown provider %q (registered: %s)",
			name, strings.Join(r.Available(), ", "))
	}
	return factory(config)
}

// Available returns the registered provider names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a factory to the package default registry.
func Register(name string, factory Factory) { defaultRegistry.Register(name, factory) }

// New builds the named provider from the package default registry.
func New(name string, config map[string]string) (Notifier, error) {
	return defaultRegistry.New(name, config)
}

// Available lists the providers in the package default registry.
func Available() []string { return defaultRegistry.Available() }
