package classreg

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrClassExists    = errors.New("class already registered")
	ErrNoTarget       = errors.New("no registered class to continue")
	ErrMemberNotFound = errors.New("member not found")
	ErrMemberType     = errors.New("member has unexpected type")
)

// Registry indexes classes by module path and name.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]map[string]*Class
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]map[string]*Class)}
}

// Register adds c under its module and name.
func (r *Registry) Register(c *Class) error {
	if c == nil {
		return errors.New("class is required")
	}
	module, name := c.Module(), c.Name()
	if name == "" {
		return errors.New("class name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.classes[module]
	if !ok {
		byName = make(map[string]*Class)
		r.classes[module] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrClassExists, module, name)
	}
	byName[name] = c
	return nil
}

// Lookup returns the class registered under module and name.
func (r *Registry) Lookup(module, name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[module][name]
	return c, ok
}

// Continue copies the members of patch onto the registered class with the
// same module and name and returns that class. Intrinsic attributes and
// special members left as inherited from Object are not copied. Members
// already on the target with the same name are overwritten.
//
// Continue is meant to run from package initialization, before the target
// is used anywhere else.
func (r *Registry) Continue(patch *Class) (*Class, error) {
	if patch == nil {
		return nil, errors.New("patch class is required")
	}
	target, ok := r.Lookup(patch.Module(), patch.Name())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTarget, patch)
	}

	for _, name := range patch.Dir() {
		m, ok := patch.Lookup(name)
		if !ok || !transferable(name, m) {
			continue
		}
		target.Set(name, m)
	}
	return target, nil
}

// MustContinue is like Continue but panics when there is no target. A
// missing target means the binary was assembled from mismatched packages.
func (r *Registry) MustContinue(patch *Class) *Class {
	target, err := r.Continue(patch)
	if err != nil {
		panic("classreg: " + err.Error())
	}
	return target
}

// Default is the process-wide registry.
var Default = NewRegistry()

// Register adds c to the Default registry.
func Register(c *Class) error { return Default.Register(c) }

// Lookup finds a class in the Default registry.
func Lookup(module, name string) (*Class, bool) { return Default.Lookup(module, name) }

// Continue augments a class in the Default registry.
func Continue(patch *Class) (*Class, error) { return Default.Continue(patch) }

// MustContinue augments a class in the Default registry or panics.
func MustContinue(patch *Class) *Class { return Default.MustContinue(patch) }

// Func resolves the member name on c and asserts its value to T, typically
// a function type.
func Func[T any](c *Class, name string) (T, error) {
	var zero T
	m, ok := c.Lookup(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s", ErrMemberNotFound, c, name)
	}
	fn, ok := m.Value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s is %T", ErrMemberType, c, name, m.Value)
	}
	return fn, nil
}
