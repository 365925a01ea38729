// Package graph provides the deferred-execution collaborators driven once per
// training batch: symbolic tensors, variable nodes, the activation and
// gradient maps, and a Session that runs the two-phase batch protocol.
package graph

import (
	"github.com/google/uuid"

	"github.com/born-ml/rmsprop/internal/tensor"
)

// SymbolicTensor is a graph edge: a shape known at build time whose concrete
// value lives in a TensorArrayMap during execution.
type SymbolicTensor struct {
	ID    uuid.UUID
	Shape tensor.Shape
}

// NewSymbolicTensor creates a symbolic tensor with a fresh id.
func NewSymbolicTensor(shape tensor.Shape) *SymbolicTensor {
	return &SymbolicTensor{ID: uuid.New(), Shape: shape.Clone()}
}

// Node is a graph vertex. Variable nodes carry materialized data and are
// updated by optimizers.
type Node struct {
	ID        uuid.UUID
	Name      string
	Output    *SymbolicTensor
	Data      *tensor.RawTensor
	Trainable bool
}

// NewVariable creates a trainable node whose output has data's shape.
// The node does not own data; the activation map that holds it does.
func NewVariable(name string, data *tensor.RawTensor) *Node {
	return &Node{
		ID:        uuid.New(),
		Name:      name,
		Output:    NewSymbolicTensor(data.Shape()),
		Data:      data,
		Trainable: true,
	}
}

// Runtime is the evaluation set of a session run.
type Runtime struct {
	Nodes []*Node
}

// VariableNodes returns the trainable nodes of the run, in graph order.
func (r *Runtime) VariableNodes() []*Node {
	var out []*Node
	for _, n := range r.Nodes {
		if n.Trainable {
			out = append(out, n)
		}
	}
	return out
}

// BatchContext bundles what a BatchOptimizer receives at each phase.
type BatchContext struct {
	Math        tensor.Backend
	BatchSize   int
	Runtime     *Runtime
	Activations *TensorArrayMap
	Gradients   *SummedTensorArrayMap
}

// NewBatchContext creates a context with empty maps. Activations are seeded
// with the current data of every variable node in runtime.
func NewBatchContext(math tensor.Backend, batchSize int, runtime *Runtime) *BatchContext {
	activations := NewTensorArrayMap()
	for _, n := range runtime.VariableNodes() {
		activations.Set(n.Output, n.Data)
	}
	return &BatchContext{
		Math:        math,
		BatchSize:   batchSize,
		Runtime:     runtime,
		Activations: activations,
		Gradients:   NewSummedTensorArrayMap(),
	}
}

// BatchOptimizer is the optional graph-mode capability of an optimizer.
//
// A Session calls BeforeBatch once, AfterExample once per example, then
// AfterBatch, never interleaving two batches on the same optimizer. If the
// batch fails after BeforeBatch, the Session calls AbortBatch instead of
// finishing it; AbortBatch must leave the optimizer ready for BeforeBatch and
// is a no-op when no batch is open.
type BatchOptimizer interface {
	BeforeBatch(bc *BatchContext) error
	AfterExample(bc *BatchContext) error
	AfterBatch(bc *BatchContext) error
	AbortBatch(bc *BatchContext)
}
