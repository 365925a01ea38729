// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/rmsprop/internal/tensor"
)

// Backend is the element-wise math contract used by optimizers.
//
// Results are new tensors owned by the caller; inputs are never modified.
// Invalid shapes or dtypes panic with an *Error.
type Backend = tensor.Backend

// Scope is a Backend that releases its results on Close unless kept.
type Scope = tensor.Scope

// Allocator creates tensor buffers.
type Allocator = tensor.Allocator

// Tracker is an Allocator that counts buffer lifetimes.
type Tracker = tensor.Tracker

// TrackerStats is a snapshot of a Tracker.
type TrackerStats = tensor.TrackerStats

// Error is the failure raised by tensor operations.
type Error = tensor.Error

// DefaultAllocator allocates untracked buffers.
var DefaultAllocator = tensor.DefaultAllocator

// Tensor errors, matched with errors.Is.
var (
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrDType         = tensor.ErrDType
	ErrReleased      = tensor.ErrReleased
)

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return tensor.NewTracker()
}

// NewScope opens a scope over backend. Close it when done.
func NewScope(backend Backend) *Scope {
	return tensor.NewScope(backend)
}

// Tidy runs fn in a new scope over backend and closes the scope afterwards.
// Tensor errors panicked by the backend are returned.
func Tidy(backend Backend, fn func(s *Scope) error) error {
	return tensor.Tidy(backend, fn)
}
