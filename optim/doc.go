// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the RMSProp optimizer.
//
// # Overview
//
// RMSProp keeps a per-parameter moving average of squared gradients and
// divides each step by its square root:
//
//	cache = γ·cache + (1-γ)·g²
//	param = param - lr·g / (√cache + ε)
//
// with ε = 1e-6 and no momentum term.
//
// # Eager mode
//
//	reg := nn.NewRegistry()
//	reg.MustRegister("w", w)
//
//	optimizer, err := optim.NewRMSProp(reg, optim.RMSPropConfig{LR: 0.01, Decay: 0.9}, backend)
//	if err != nil {
//	    return err
//	}
//	defer optimizer.Dispose()
//
//	for step := range steps {
//	    grads := computeGrads()
//	    err := optimizer.ApplyGradients(grads) // grads stay owned by the caller
//	    tensor.Release(grads["w"])
//	}
//
// # Graph mode
//
// RMSProp also implements graph.BatchOptimizer. A graph.Session calls
// BeforeBatch, AfterExample once per example and AfterBatch; the update uses
// the gradient summed over the batch with the learning rate divided by the
// batch size.
// When a batch fails part way, the session calls AbortBatch, which discards
// the partial gradient sums and readies the optimizer for the next batch.
//
// # Buffer ownership
//
// The optimizer owns its scalar constants and accumulators and releases them
// in Dispose. Intermediates of an update are released before it returns,
// including when it fails.
package optim
