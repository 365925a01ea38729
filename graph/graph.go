// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph exposes the per-batch training protocol used by graph-mode
// optimizers.
//
//	node := graph.NewVariable("w", w)
//	bc := graph.NewBatchContext(backend, 32, &graph.Runtime{Nodes: []*graph.Node{node}})
//	err := graph.NewSession(logger).Train(ctx, bc, opt, numBatches, step)
package graph

import (
	"log/slog"

	"github.com/born-ml/rmsprop/internal/graph"
	"github.com/born-ml/rmsprop/tensor"
)

// Graph types.
type (
	SymbolicTensor       = graph.SymbolicTensor
	Node                 = graph.Node
	Runtime              = graph.Runtime
	BatchContext         = graph.BatchContext
	BatchOptimizer       = graph.BatchOptimizer
	TensorArrayMap       = graph.TensorArrayMap
	SummedTensorArrayMap = graph.SummedTensorArrayMap
	Session              = graph.Session
	ExampleFunc          = graph.ExampleFunc
)

// NewVariable creates a trainable node holding data.
func NewVariable(name string, data *tensor.RawTensor) *Node {
	return graph.NewVariable(name, data)
}

// NewBatchContext creates a batch context whose activations hold the data of
// every variable node in runtime.
func NewBatchContext(math tensor.Backend, batchSize int, runtime *Runtime) *BatchContext {
	return graph.NewBatchContext(math, batchSize, runtime)
}

// NewSession creates a session. A nil logger discards output.
func NewSession(logger *slog.Logger) *Session {
	return graph.NewSession(logger)
}
