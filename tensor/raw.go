// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/rmsprop/internal/tensor"
)

// RawTensor is a handle onto a reference-counted buffer.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()  // Zero-copy access
//	clone := raw.Clone()     // Shares buffer via reference counting
//	clone.Release()
//	raw.Release()
type RawTensor = tensor.RawTensor

// Shape represents tensor dimensions. An empty Shape is a scalar.
type Shape = tensor.Shape

// DataType identifies the element type.
type DataType = tensor.DataType

// Device identifies where a buffer lives.
type Device = tensor.Device

// Float is the constraint for element types.
type Float = tensor.Float

// Element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// Devices.
const (
	CPU = tensor.CPU
)

// NewRaw creates an untracked zero-filled tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice copies data into a new tensor allocated by alloc.
func FromSlice[T Float](alloc Allocator, data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(alloc, data, shape)
}

// MustFromSlice is like FromSlice but panics on error.
func MustFromSlice[T Float](alloc Allocator, data []T, shape Shape) *RawTensor {
	return tensor.MustFromSlice(alloc, data, shape)
}

// Scalar creates a rank-0 tensor holding v.
func Scalar[T Float](alloc Allocator, v T) *RawTensor {
	return tensor.Scalar(alloc, v)
}

// Release releases every non-nil tensor in ts.
func Release(ts ...*RawTensor) {
	tensor.Release(ts...)
}
