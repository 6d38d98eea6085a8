package extensions

import (
	"fmt"
	"sort"
	"sync"
)

// Registrar is what a compiler instantiates by name. It must be
// constructible without arguments; everything it needs arrives through
// ProcessOption before RegisterComponents is called.
type Registrar interface {
	// ProcessOption receives one -P option addressed to the registrar's plugin id
	ProcessOption(key, value string) error

	// RegisterComponents registers the extensions into the project
	RegisterComponents(project *Project, cfg *Configuration) error
}

var (
	factories   = make(map[string]func() Registrar)
	factoriesMu sync.RWMutex
)

// RegisterFactory makes a registrar constructible by name. Registering the
// same name twice panics.
func RegisterFactory(name string, factory func() Registrar) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if factory == nil {
		panic("extensions: RegisterFactory factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("extensions: RegisterFactory called twice for " + name)
	}
	factories[name] = factory
}

// NewRegistrar instantiates a registered registrar
func NewRegistrar(name string) (Registrar, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistrarNotFound, name)
	}
	return factory(), nil
}

// Factories returns the sorted names of registered registrars
func Factories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
