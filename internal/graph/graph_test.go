package graph

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/rmsprop/internal/backend/cpu"
	"github.com/born-ml/rmsprop/internal/tensor"
)

func newTracked() (*tensor.Tracker, *cpu.CPUBackend) {
	tracker := tensor.NewTracker()
	return tracker, cpu.New(cpu.WithAllocator(tracker))
}

func TestNewVariable(t *testing.T) {
	data := tensor.MustFromSlice(tensor.DefaultAllocator, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	n := NewVariable("w", data)

	assert.Equal(t, "w", n.Name)
	assert.True(t, n.Trainable)
	assert.Same(t, data, n.Data)
	assert.Equal(t, tensor.Shape{2, 2}, n.Output.Shape)
	assert.NotEqual(t, n.ID, n.Output.ID)

	other := NewVariable("w", data)
	assert.NotEqual(t, n.ID, other.ID, "ids are unique per node")
}

func TestRuntime_VariableNodes(t *testing.T) {
	data := tensor.MustFromSlice(tensor.DefaultAllocator, []float32{1}, tensor.Shape{1})
	a, b, c := NewVariable("a", data), NewVariable("b", data), NewVariable("c", data)
	b.Trainable = false

	r := &Runtime{Nodes: []*Node{a, b, c}}
	assert.Equal(t, []*Node{a, c}, r.VariableNodes())
	assert.Empty(t, (&Runtime{}).VariableNodes())
}

func TestTensorArrayMap(t *testing.T) {
	tracker, _ := newTracked()
	k1 := NewSymbolicTensor(tensor.Shape{1})
	k2 := NewSymbolicTensor(tensor.Shape{1})
	v1 := tensor.MustFromSlice(tracker, []float32{1}, tensor.Shape{1})
	v2 := tensor.MustFromSlice(tracker, []float32{2}, tensor.Shape{1})

	m := NewTensorArrayMap()
	assert.Nil(t, m.Get(k1))
	assert.False(t, m.Has(k1))

	m.Set(k2, v2)
	m.Set(k1, v1)
	assert.Equal(t, 2, m.Size())
	assert.Equal(t, []*SymbolicTensor{k2, k1}, m.Keys())
	assert.Same(t, v1, m.Get(k1))

	// Set does not release the value it replaces.
	m.Set(k1, v2.Clone())
	assert.False(t, v1.Released())
	v1.Release()
	assert.Equal(t, []*SymbolicTensor{k2, k1}, m.Keys())

	m.Delete(k2)
	assert.False(t, m.Has(k2))
	assert.False(t, v2.Released())
	assert.Equal(t, []*SymbolicTensor{k1}, m.Keys())
	m.Delete(k2)

	m.Dispose()
	assert.Zero(t, m.Size())
	v2.Release()
	assert.Zero(t, tracker.Live())
	assert.Zero(t, tracker.DoubleReleases())
}

func TestSummedTensorArrayMap_Add(t *testing.T) {
	tracker, backend := newTracked()
	k := NewSymbolicTensor(tensor.Shape{2})

	m := NewSummedTensorArrayMap()
	first := tensor.MustFromSlice(tracker, []float32{1, 2}, tensor.Shape{2})
	m.Add(backend, k, first)
	assert.Same(t, first, m.Get(k))

	second := tensor.MustFromSlice(tracker, []float32{10, 20}, tensor.Shape{2})
	m.Add(backend, k, second)
	assert.Equal(t, []float32{11, 22}, m.Get(k).AsFloat32())
	assert.True(t, first.Released())
	assert.True(t, second.Released())
	assert.Equal(t, 1, tracker.Live())

	m.Dispose()
	assert.Zero(t, tracker.Live())
}

// countingOptimizer records the calls a Session makes.
type countingOptimizer struct {
	calls    []string
	failOn   string
	examples int
}

func (o *countingOptimizer) record(name string) error {
	o.calls = append(o.calls, name)
	if name == o.failOn {
		return errors.New("boom")
	}
	return nil
}

func (o *countingOptimizer) BeforeBatch(*BatchContext) error { return o.record("before") }

func (o *countingOptimizer) AfterExample(bc *BatchContext) error {
	o.examples += bc.Gradients.Size()
	return o.record("example")
}

func (o *countingOptimizer) AfterBatch(*BatchContext) error { return o.record("after") }

func (o *countingOptimizer) AbortBatch(*BatchContext) { _ = o.record("abort") }

func TestSession_RunBatch(t *testing.T) {
	tracker, backend := newTracked()
	data := tensor.MustFromSlice(tracker, []float32{0}, tensor.Shape{1})
	node := NewVariable("w", data)
	bc := NewBatchContext(backend, 3, &Runtime{Nodes: []*Node{node}})
	assert.Same(t, data, bc.Activations.Get(node.Output))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opt := &countingOptimizer{}

	step := func(batch, example int, bc *BatchContext) error {
		g := tensor.MustFromSlice(tracker, []float32{float32(example)}, tensor.Shape{1})
		bc.Gradients.Add(bc.Math, node.Output, g)
		return nil
	}
	require.NoError(t, NewSession(logger).RunBatch(context.Background(), bc, opt, 7, step))

	assert.Equal(t, []string{"before", "example", "example", "example", "after"}, opt.calls)
	assert.Equal(t, 3, opt.examples)
	assert.Zero(t, bc.Gradients.Size(), "gradients are disposed after each example")
	assert.Contains(t, buf.String(), "batch=7")

	bc.Activations.Dispose()
	assert.Zero(t, tracker.Live())
}

func TestSession_RunBatchErrors(t *testing.T) {
	_, backend := newTracked()
	noop := func(int, int, *BatchContext) error { return nil }

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		opt := &countingOptimizer{}
		err := NewSession(nil).RunBatch(ctx, NewBatchContext(backend, 1, &Runtime{}), opt, 0, noop)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, opt.calls)
	})

	t.Run("non-positive batch size", func(t *testing.T) {
		opt := &countingOptimizer{}
		err := NewSession(nil).RunBatch(context.Background(), NewBatchContext(backend, 0, &Runtime{}), opt, 0, noop)
		assert.Error(t, err)
		assert.Empty(t, opt.calls)
	})

	t.Run("step failure", func(t *testing.T) {
		opt := &countingOptimizer{}
		fail := func(_, example int, _ *BatchContext) error {
			if example == 1 {
				return errors.New("forward failed")
			}
			return nil
		}
		err := NewSession(nil).RunBatch(context.Background(), NewBatchContext(backend, 3, &Runtime{}), opt, 2, fail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch 2: example 1")
		assert.Equal(t, []string{"before", "example", "abort"}, opt.calls)
	})

	t.Run("optimizer failure", func(t *testing.T) {
		opt := &countingOptimizer{failOn: "after"}
		err := NewSession(nil).RunBatch(context.Background(), NewBatchContext(backend, 1, &Runtime{}), opt, 0, noop)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after batch")
		assert.Equal(t, []string{"before", "example", "after", "abort"}, opt.calls)
	})

	t.Run("before batch failure is not aborted", func(t *testing.T) {
		opt := &countingOptimizer{failOn: "before"}
		err := NewSession(nil).RunBatch(context.Background(), NewBatchContext(backend, 1, &Runtime{}), opt, 0, noop)
		require.Error(t, err)
		assert.Equal(t, []string{"before"}, opt.calls)
	})

	t.Run("after example failure", func(t *testing.T) {
		opt := &countingOptimizer{failOn: "example"}
		err := NewSession(nil).RunBatch(context.Background(), NewBatchContext(backend, 2, &Runtime{}), opt, 0, noop)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after example 0")
		assert.Equal(t, []string{"before", "example", "abort"}, opt.calls)
	})
}

func TestSession_Train(t *testing.T) {
	_, backend := newTracked()
	opt := &countingOptimizer{}
	bc := NewBatchContext(backend, 2, &Runtime{})

	err := NewSession(nil).Train(context.Background(), bc, opt, 3, func(int, int, *BatchContext) error { return nil })
	require.NoError(t, err)
	assert.Len(t, opt.calls, 3*(2+2))
}
