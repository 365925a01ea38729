// Package optim implements the RMSProp optimizer for training neural networks.
//
// The optimizer runs in two modes that share one numeric update:
//   - eager: ApplyGradients updates named parameters of an nn.Registry
//   - graph: BeforeBatch / AfterExample / AfterBatch, driven by a graph.Session
//
// Every buffer the optimizer allocates has a single owner. Intermediates of
// an update live in a tensor.Scope and are released when the update returns;
// only the new accumulator and the new parameter value survive it.
//
// Example usage:
//
//	backend := cpu.New()
//	reg := nn.NewRegistry()
//	reg.MustRegister("w", w)
//
//	opt, err := optim.NewRMSProp(reg, optim.RMSPropConfig{LR: 0.01, Decay: 0.9}, backend)
//	if err != nil {
//	    return err
//	}
//	defer opt.Dispose()
//
//	for step := range steps {
//	    grads := computeGrads(reg)
//	    if err := opt.ApplyGradients(grads); err != nil {
//	        return err
//	    }
//	    for _, g := range grads {
//	        g.Release()
//	    }
//	}
package optim

import (
	"github.com/born-ml/rmsprop/internal/graph"
	"github.com/born-ml/rmsprop/internal/tensor"
)

// Optimizer is the eager-mode interface of an optimization algorithm.
type Optimizer interface {
	// ApplyGradients updates every named parameter from its gradient.
	//
	// The gradients stay owned by the caller.
	ApplyGradients(grads map[string]*tensor.RawTensor) error

	// GetLR returns the learning rate.
	GetLR() float32

	// Dispose releases every buffer the optimizer owns.
	Dispose()
}

// BatchOptimizer is an Optimizer that can also be driven by a graph.Session.
type BatchOptimizer interface {
	Optimizer
	graph.BatchOptimizer
}

// Verify that RMSProp implements both modes.
var _ BatchOptimizer = (*RMSProp)(nil)
