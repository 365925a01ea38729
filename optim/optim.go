// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/rmsprop/internal/optim"
	"github.com/born-ml/rmsprop/nn"
	"github.com/born-ml/rmsprop/tensor"
)

// Optimizer is the eager-mode interface of an optimizer.
type Optimizer = optim.Optimizer

// BatchOptimizer is an Optimizer that can also be driven per batch.
type BatchOptimizer = optim.BatchOptimizer

// RMSProp (Root Mean Square Propagation)

// RMSProp represents the RMSProp optimizer without momentum.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for the RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// Option configures an RMSProp optimizer.
type Option = optim.Option

// InvalidConfigError reports a hyper-parameter outside its range.
type InvalidConfigError = optim.InvalidConfigError

// Epsilon is the smoothing term added to the root of the accumulator.
const Epsilon = optim.Epsilon

// Optimizer errors, matched with errors.Is.
var (
	ErrInvalidConfig = optim.ErrInvalidConfig
	ErrDisposed      = optim.ErrDisposed
	ErrBatchState    = optim.ErrBatchState
)

// Options.
var (
	WithLogger        = optim.WithLogger
	WithAllocator     = optim.WithAllocator
	WithVariableNodes = optim.WithVariableNodes
)

// NewRMSProp creates a new RMSProp optimizer over the parameters of registry.
//
// Example:
//
//	backend := cpu.New()
//	optimizer, err := optim.NewRMSProp(
//	    registry,
//	    optim.RMSPropConfig{
//	        LR:    0.001,
//	        Decay: 0.9,
//	    },
//	    backend,
//	)
func NewRMSProp(registry *nn.Registry, config RMSPropConfig, backend tensor.Backend, opts ...Option) (*RMSProp, error) {
	return optim.NewRMSProp(registry, config, backend, opts...)
}

// MustNewRMSProp is like NewRMSProp but panics on an invalid config.
func MustNewRMSProp(registry *nn.Registry, config RMSPropConfig, backend tensor.Backend, opts ...Option) *RMSProp {
	return optim.MustNewRMSProp(registry, config, backend, opts...)
}
