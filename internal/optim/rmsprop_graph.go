package optim

import (
	"github.com/pkg/errors"

	"github.com/born-ml/rmsprop/internal/graph"
	"github.com/born-ml/rmsprop/internal/tensor"
)

type batchPhase int

const (
	awaitingBatch batchPhase = iota
	inBatch
)

func (p batchPhase) String() string {
	if p == inBatch {
		return "in batch"
	}
	return "awaiting batch"
}

// graphState is the graph-mode half of RMSProp.
type graphState struct {
	phase batchPhase

	specifiedNodes []*graph.Node
	variableNodes  []*graph.Node

	// cGraph is -lr/batchSize per dtype, rebuilt when the batch size changes.
	cGraph    map[tensor.DataType]*tensor.RawTensor
	batchSize int

	// Per-batch gradient sums, replaced after every batch.
	variableGradients *graph.TensorArrayMap
	// Squared-gradient averages, keyed by node output.
	accumulated *graph.TensorArrayMap
}

func newGraphState() graphState {
	return graphState{
		cGraph:            make(map[tensor.DataType]*tensor.RawTensor),
		variableGradients: graph.NewTensorArrayMap(),
		accumulated:       graph.NewTensorArrayMap(),
	}
}

func (g *graphState) dispose() {
	g.releaseScales()
	g.resetGradients()
	g.accumulated.Dispose()
}

func (g *graphState) releaseScales() {
	for dtype, c := range g.cGraph {
		c.Release()
		delete(g.cGraph, dtype)
	}
}

// resetGradients drops the batch sums and closes the batch.
func (g *graphState) resetGradients() {
	g.variableGradients.Dispose()
	g.variableGradients = graph.NewTensorArrayMap()
	g.phase = awaitingBatch
}

// scale returns cGraph in dtype, building it on first use.
func (o *RMSProp) scale(dtype tensor.DataType) *tensor.RawTensor {
	g := &o.graph
	if c, ok := g.cGraph[dtype]; ok {
		return c
	}
	var c *tensor.RawTensor
	if dtype == tensor.Float64 {
		c = tensor.Scalar(o.alloc, -float64(o.lr)/float64(g.batchSize))
	} else {
		c = tensor.Scalar(o.alloc, -o.lr/float32(g.batchSize))
	}
	g.cGraph[dtype] = c
	return c
}

// BeforeBatch prepares a batch: it resolves the variable nodes, resets their
// gradient sums to zero and creates missing accumulators.
func (o *RMSProp) BeforeBatch(bc *graph.BatchContext) error {
	if o.disposed {
		return errors.WithStack(ErrDisposed)
	}
	g := &o.graph
	if g.phase != awaitingBatch {
		return errors.Wrapf(ErrBatchState, "before batch called while %s", g.phase)
	}
	if bc.BatchSize <= 0 {
		return errors.Errorf("optim: batch size must be positive, got %d", bc.BatchSize)
	}

	if g.specifiedNodes != nil {
		g.variableNodes = g.specifiedNodes
	} else {
		g.variableNodes = bc.Runtime.VariableNodes()
	}

	for _, node := range g.variableNodes {
		if _, err := o.constantsFor(node.Data.DType()); err != nil {
			return errors.Wrapf(err, "rmsprop: node %q", node.Name)
		}
	}

	if bc.BatchSize != g.batchSize {
		g.releaseScales()
		g.batchSize = bc.BatchSize
		o.logger.Debug("rmsprop batch scale updated", "batch_size", bc.BatchSize)
	}

	for _, node := range g.variableNodes {
		shape, dtype := node.Output.Shape, node.Data.DType()

		if old := g.variableGradients.Get(node.Output); old != nil {
			old.Release()
		}
		g.variableGradients.Set(node.Output, bc.Math.Zeros(shape, dtype))

		if !g.accumulated.Has(node.Output) {
			g.accumulated.Set(node.Output, bc.Math.Zeros(shape, dtype))
		}
	}

	g.phase = inBatch
	return nil
}

// AfterExample adds the gradient of every variable node from bc.Gradients
// into the batch sums. bc.Gradients keeps ownership of its entries.
//
// Every gradient is checked before any sum changes.
func (o *RMSProp) AfterExample(bc *graph.BatchContext) error {
	if o.disposed {
		return errors.WithStack(ErrDisposed)
	}
	g := &o.graph
	if g.phase != inBatch {
		return errors.Wrapf(ErrBatchState, "after example called while %s", g.phase)
	}

	for _, node := range g.variableNodes {
		grad := bc.Gradients.Get(node.Output)
		if grad == nil {
			return errors.Errorf("optim: no gradient for node %q", node.Name)
		}
		if !grad.Shape().Equal(node.Output.Shape) {
			return errors.WithStack(tensor.ShapeMismatch("gradient "+node.Name, node.Output.Shape, grad.Shape()))
		}
	}

	for _, node := range g.variableNodes {
		old := g.variableGradients.Get(node.Output)
		var sum *tensor.RawTensor
		err := tensor.Tidy(bc.Math, func(s *tensor.Scope) error {
			sum = s.Keep(s.Add(old, bc.Gradients.Get(node.Output)))
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "rmsprop: accumulate %q", node.Name)
		}
		g.variableGradients.Set(node.Output, sum)
		old.Release()
	}
	return nil
}

// AfterBatch updates every variable node from its batch gradient sum, then
// starts a fresh gradient map.
//
// Every node must have a value in bc.Activations, which owns it; this is
// checked before any node changes. The batch ends even when an update fails;
// nodes updated before the failure keep their new values.
func (o *RMSProp) AfterBatch(bc *graph.BatchContext) error {
	if o.disposed {
		return errors.WithStack(ErrDisposed)
	}
	g := &o.graph
	if g.phase != inBatch {
		return errors.Wrapf(ErrBatchState, "after batch called while %s", g.phase)
	}
	defer g.resetGradients()

	for _, node := range g.variableNodes {
		if bc.Activations.Get(node.Output) == nil {
			return errors.Errorf("optim: no activation for node %q", node.Name)
		}
	}

	for _, node := range g.variableNodes {
		sl := &nodeSlot{state: g, activations: bc.Activations, node: node}
		dtype := sl.Value().DType()
		k, err := o.constantsFor(dtype)
		if err != nil {
			return errors.Wrapf(err, "rmsprop: update node %q", node.Name)
		}
		k.c = o.scale(dtype)

		grad := g.variableGradients.Get(node.Output)
		if err := rmspropStep(bc.Math, fusedBlend, k, grad, sl); err != nil {
			return errors.Wrapf(err, "rmsprop: update node %q", node.Name)
		}
	}
	o.logger.Debug("rmsprop batch applied", "nodes", len(g.variableNodes), "batch_size", g.batchSize)
	return nil
}

// AbortBatch discards the gradient sums of an unfinished batch so the next
// BeforeBatch can start. Node values and accumulators are untouched. It is a
// no-op when no batch is open.
func (o *RMSProp) AbortBatch(*graph.BatchContext) {
	g := &o.graph
	if o.disposed || g.phase != inBatch {
		return
	}
	g.resetGradients()
	o.logger.Debug("rmsprop batch aborted", "nodes", len(g.variableNodes))
}

// nodeSlot adapts a variable node. Its value lives in the activation map,
// which owns it; the node's Data field mirrors it.
type nodeSlot struct {
	state       *graphState
	activations *graph.TensorArrayMap
	node        *graph.Node
}

func (n *nodeSlot) Value() *tensor.RawTensor {
	return n.activations.Get(n.node.Output)
}

func (n *nodeSlot) Accumulator() *tensor.RawTensor {
	return n.state.accumulated.Get(n.node.Output)
}

func (n *nodeSlot) Commit(value, accumulator *tensor.RawTensor) error {
	old := n.Value()
	if !value.Shape().Equal(old.Shape()) {
		return errors.WithStack(tensor.ShapeMismatch("assign "+n.node.Name, old.Shape(), value.Shape()))
	}
	if value.DType() != old.DType() {
		return errors.WithStack(tensor.DTypeMismatch("assign "+n.node.Name, old.DType(), value.DType()))
	}

	oldCache := n.state.accumulated.Get(n.node.Output)
	n.state.accumulated.Set(n.node.Output, accumulator)
	n.activations.Set(n.node.Output, value)
	n.node.Data = value

	old.Release()
	oldCache.Release()
	return nil
}
