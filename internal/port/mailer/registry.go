package mailer

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a Mailer from driver-specific settings.
type Factory func(settings map[string]string) (Mailer, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a mailer driver available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("mailer: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a Mailer by driver name using the registered factory.
func New(name string, settings map[string]string) (Mailer, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("mailer: unknown driver %q (available: %v)", name, Available())
	}
	return factory(settings)
}

// Available returns the sorted names of all registered drivers.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
