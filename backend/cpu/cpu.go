// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/rmsprop/internal/backend/cpu"
	"github.com/born-ml/rmsprop/internal/parallel"
	"github.com/born-ml/rmsprop/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	tracker := tensor.NewTracker()
//	backend := cpu.New(cpu.WithAllocator(tracker))
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithAllocator makes the backend allocate every result through alloc.
func WithAllocator(alloc tensor.Allocator) Option {
	return internalcpu.WithAllocator(alloc)
}

// WithSequential disables parallel kernels.
func WithSequential() Option {
	return internalcpu.WithParallel(parallel.Sequential())
}
