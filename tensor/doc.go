// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides reference-counted raw tensors and the scoped
// ownership primitives used by the optimizer.
//
// # Ownership
//
// Every RawTensor is a handle holding one reference to a buffer. Whoever
// holds a handle releases it, or hands it to something that will:
//
//	w := tensor.MustFromSlice(tensor.DefaultAllocator, []float32{1, 2}, tensor.Shape{2})
//	defer w.Release()
//
// Release is idempotent per handle. Clone returns a second handle onto the
// same buffer, released independently.
//
// # Scoped temporaries
//
// Tidy runs a function against a Scope, a Backend that records every result.
// When the function returns, every result not passed to Keep is released:
//
//	var next *tensor.RawTensor
//	err := tensor.Tidy(backend, func(s *tensor.Scope) error {
//	    next = s.Keep(s.Add(s.Mul(a, a), b))
//	    return nil
//	})
//
// Shape and dtype failures raised by a backend inside Tidy are returned as
// errors matching ErrShapeMismatch or ErrDType.
//
// # Leak tracking
//
// A Tracker is an Allocator that counts live buffers:
//
//	tracker := tensor.NewTracker()
//	backend := cpu.New(cpu.WithAllocator(tracker))
//	// ...
//	fmt.Println(tracker.Stats()) // allocs=1,204 frees=1,204 live=0 ...
package tensor
