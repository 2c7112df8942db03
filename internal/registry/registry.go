package registry

import (
	"fmt"
	"sort"

	"github.com/tellae/eqasim/internal/stage"
)

// Module is the interface that all stage modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered stage descriptors for a single application
// instance.
type Registry struct {
	stages map[string]*stage.Descriptor
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		stages: make(map[string]*stage.Descriptor),
	}
}

// RegisterStage adds a stage descriptor under its name. Registering an
// incomplete descriptor or the same name twice is a programmer error and
// panics, following the convention that registration happens in init-time
// module code.
func (r *Registry) RegisterStage(desc *stage.Descriptor) {
	if err := desc.Check(); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	if _, exists := r.stages[desc.Name]; exists {
		panic(fmt.Sprintf("registry: stage %q already registered", desc.Name))
	}
	r.stages[desc.Name] = desc
}

// Resolve returns the descriptor registered under name.
func (r *Registry) Resolve(name string) (*stage.Descriptor, bool) {
	desc, ok := r.stages[name]
	return desc, ok
}

// Names returns every registered stage name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered stages.
func (r *Registry) Len() int {
	return len(r.stages)
}
