// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for element-wise tensor math.
//
// # Overview
//
// The backend implements tensor.Backend with:
//   - Pure Go implementation (no CGO)
//   - Float32 and Float64 support
//   - NumPy-compatible broadcasting
//   - A fused ScaledAdd (c1·a + c2·b) in one pass
//   - Chunked parallel kernels for large tensors
//
// Every result is a new tensor allocated through the backend's Allocator.
// Inputs are never written to, so a result can be owned by exactly one Scope.
//
// # Basic Usage
//
//	backend := cpu.New()
//	a := tensor.MustFromSlice(tensor.DefaultAllocator, []float32{1, 2}, tensor.Shape{2})
//	sum := backend.Add(a, a)
//	defer tensor.Release(a, sum)
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
