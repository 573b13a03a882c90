// Package registry maps the module.Class paths of the configuration file to
// the Go constructors of the module implementations. Implementations
// register themselves from init so that importing a hardware or logic
// package is all that is needed to make its classes loadable.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mvchalupnik/qudi/config"
	log "github.com/sirupsen/logrus"
)

// Factory builds a module instance from its configuration descriptor
type Factory func(d *config.Descriptor) (interface{}, error)

type classRegistry struct {
	lock      sync.Mutex
	factories map[string]Factory
}

var registry = &classRegistry{factories: make(map[string]Factory)}

// Register makes a class path constructible. Registering the same class
// path twice is a programming error.
func Register(class string, factory Factory) {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	if _, ok := registry.factories[class]; ok {
		log.WithFields(log.Fields{"class": class}).Panic("module class registered twice")
	}
	registry.factories[class] = factory
}

// Exists checks if the class path is registered
func Exists(class string) bool {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	_, ok := registry.factories[class]
	return ok
}

// Classes returns all the registered class paths
func Classes() []string {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	result := make([]string, 0, len(registry.factories))
	for class := range registry.factories {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}

// Create instantiates the class named by the descriptor
func Create(d *config.Descriptor) (interface{}, error) {
	registry.lock.Lock()
	factory, ok := registry.factories[d.Class]
	registry.lock.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown module class %q for module %q", d.Class, d.Name)
	}
	log.WithFields(log.Fields{"module": d.Name, "class": d.Class}).Debug("create module instance")
	return factory(d)
}

// Clear drops all registered factories, tests only
func Clear() {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	registry.factories = make(map[string]Factory)
}
