// Package nn holds trainable parameters and the registry that owns them.
package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/rmsprop/internal/tensor"
)

// Parameter represents a trainable tensor identified by a unique name.
//
// The parameter owns its current value. Assign swaps in a new value and
// releases the previous one.
type Parameter struct {
	name  string
	value *tensor.RawTensor
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the current value. The parameter keeps ownership.
func (p *Parameter) Value() *tensor.RawTensor {
	return p.value
}

// Shape returns the shape of the current value.
func (p *Parameter) Shape() tensor.Shape {
	return p.value.Shape()
}

// Assign replaces the parameter value with value and releases the old one.
//
// The parameter takes ownership of value. The shape and dtype must match the
// current value, otherwise tensor.ErrShapeMismatch is returned and nothing
// changes (value stays owned by the caller).
func (p *Parameter) Assign(value *tensor.RawTensor) error {
	if !value.Shape().Equal(p.value.Shape()) {
		return errors.WithStack(tensor.ShapeMismatch("assign "+p.name, p.value.Shape(), value.Shape()))
	}
	if value.DType() != p.value.DType() {
		return errors.WithStack(tensor.DTypeMismatch("assign "+p.name, p.value.DType(), value.DType()))
	}
	if value == p.value {
		return nil
	}
	old := p.value
	p.value = value
	old.Release()
	return nil
}
