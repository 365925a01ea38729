// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/rmsprop/internal/nn"
)

// Parameter is a named trainable tensor owned by a Registry.
//
// Methods:
//
//	Name() string
//	    Returns the parameter name.
//
//	Value() *tensor.RawTensor
//	    Returns the current value. The parameter keeps ownership.
//
//	Assign(value *tensor.RawTensor) error
//	    Replaces the value (same shape and dtype) and releases the old one.
type Parameter = nn.Parameter

// Registry is the set of named parameters a model trains.
type Registry = nn.Registry

// Registry errors, matched with errors.Is.
var (
	ErrUnknownParameter   = nn.ErrUnknownParameter
	ErrDuplicateParameter = nn.ErrDuplicateParameter
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return nn.NewRegistry()
}
