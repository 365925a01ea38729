package nn

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/rmsprop/internal/tensor"
)

// Registry errors.
var (
	ErrUnknownParameter   = errors.New("unknown parameter")
	ErrDuplicateParameter = errors.New("duplicate parameter")
)

// Registry is the set of named parameters a model trains.
//
// It is passed explicitly to optimizers instead of living in process-wide
// state. A Registry is not safe for concurrent mutation.
type Registry struct {
	params   map[string]*Parameter
	disposed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[string]*Parameter)}
}

// Register adds a parameter and takes ownership of value.
func (r *Registry) Register(name string, value *tensor.RawTensor) (*Parameter, error) {
	if _, ok := r.params[name]; ok {
		return nil, errors.Wrapf(ErrDuplicateParameter, "register %q", name)
	}
	p := &Parameter{name: name, value: value}
	r.params[name] = p
	return p, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, value *tensor.RawTensor) *Parameter {
	p, err := r.Register(name, value)
	if err != nil {
		panic(err)
	}
	return p
}

// Get looks up a parameter by name.
func (r *Registry) Get(name string) (*Parameter, bool) {
	p, ok := r.params[name]
	return p, ok
}

// Lookup is like Get but returns ErrUnknownParameter for missing names.
func (r *Registry) Lookup(name string) (*Parameter, error) {
	p, ok := r.params[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownParameter, "%q", name)
	}
	return p, nil
}

// Assign overwrites the value of the named parameter. See Parameter.Assign.
func (r *Registry) Assign(name string, value *tensor.RawTensor) error {
	p, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return p.Assign(value)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered parameters.
func (r *Registry) Len() int {
	return len(r.params)
}

// Dispose releases every parameter value. Calling it again is a no-op.
func (r *Registry) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	for _, p := range r.params {
		p.value.Release()
	}
}
