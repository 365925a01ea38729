package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/rmsprop/internal/parallel"
	"github.com/born-ml/rmsprop/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return New(WithParallel(parallel.Sequential()))
}

func f32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(tensor.DefaultAllocator, data, shape)
	require.NoError(t, err)
	return raw
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	require.NotNil(t, backend)
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.Equal(t, tensor.DefaultAllocator, backend.Allocator())
}

func TestCPUBackend_Binary(t *testing.T) {
	backend := newTestBackend()

	tests := []struct {
		name     string
		op       func(a, b *tensor.RawTensor) *tensor.RawTensor
		a, b     []float32
		aShape   tensor.Shape
		bShape   tensor.Shape
		expected []float64
		outShape tensor.Shape
	}{
		{
			name: "add same shape", op: backend.Add,
			a: []float32{1, 2, 3}, b: []float32{10, 20, 30},
			aShape: tensor.Shape{3}, bShape: tensor.Shape{3},
			expected: []float64{11, 22, 33}, outShape: tensor.Shape{3},
		},
		{
			name: "sub", op: backend.Sub,
			a: []float32{5, 5}, b: []float32{1, 2},
			aShape: tensor.Shape{2}, bShape: tensor.Shape{2},
			expected: []float64{4, 3}, outShape: tensor.Shape{2},
		},
		{
			name: "mul by rank-0 scalar", op: backend.Mul,
			a: []float32{0.5}, b: []float32{2, 4, 6, 8},
			aShape: tensor.Shape{}, bShape: tensor.Shape{2, 2},
			expected: []float64{1, 2, 3, 4}, outShape: tensor.Shape{2, 2},
		},
		{
			name: "div row broadcast", op: backend.Div,
			a: []float32{2, 4, 6, 8, 10, 12}, b: []float32{2, 4, 6},
			aShape: tensor.Shape{2, 3}, bShape: tensor.Shape{3},
			expected: []float64{1, 1, 1, 4, 2.5, 2}, outShape: tensor.Shape{2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := f32(t, tt.a, tt.aShape)
			b := f32(t, tt.b, tt.bShape)
			aBefore := a.ToFloat64()

			out := tt.op(a, b)

			assert.True(t, out.Shape().Equal(tt.outShape), "shape %v", out.Shape())
			assert.True(t, floats.EqualApprox(tt.expected, out.ToFloat64(), 1e-6), "got %v", out.ToFloat64())
			assert.Equal(t, aBefore, a.ToFloat64(), "inputs must not be mutated")
			assert.NotSame(t, a, out)
		})
	}
}

func TestCPUBackend_ShapeMismatchPanics(t *testing.T) {
	backend := newTestBackend()
	a := f32(t, []float32{1, 2, 3}, tensor.Shape{3})
	b := f32(t, []float32{1, 2}, tensor.Shape{2})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	}()
	backend.Add(a, b)
}

func TestCPUBackend_DTypeMismatchPanics(t *testing.T) {
	backend := newTestBackend()
	a := f32(t, []float32{1}, tensor.Shape{1})
	b, err := tensor.FromSlice(tensor.DefaultAllocator, []float64{1}, tensor.Shape{1})
	require.NoError(t, err)

	assert.PanicsWithError(t, tensor.DTypeMismatch("mul", tensor.Float32, tensor.Float64).Error(), func() {
		backend.Mul(a, b)
	})
}

func TestCPUBackend_Unary(t *testing.T) {
	backend := newTestBackend()
	x := f32(t, []float32{0, 1, 4, 9}, tensor.Shape{2, 2})

	sqrt := backend.Sqrt(x)
	assert.True(t, floats.EqualApprox([]float64{0, 1, 2, 3}, sqrt.ToFloat64(), 1e-7))

	square := backend.Square(x)
	assert.True(t, floats.EqualApprox([]float64{0, 1, 16, 81}, square.ToFloat64(), 1e-7))
	assert.True(t, square.Shape().Equal(tensor.Shape{2, 2}))
}

func TestCPUBackend_ScalarOps(t *testing.T) {
	backend := newTestBackend()
	x := f32(t, []float32{1, 2}, tensor.Shape{2})

	assert.True(t, floats.EqualApprox([]float64{1.5, 2.5}, backend.AddScalar(x, float32(0.5)).ToFloat64(), 1e-7))
	assert.True(t, floats.EqualApprox([]float64{3, 6}, backend.MulScalar(x, 3.0).ToFloat64(), 1e-7))

	x64, err := tensor.FromSlice(tensor.DefaultAllocator, []float64{1, 2}, tensor.Shape{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -2}, backend.MulScalar(x64, float32(-1)).AsFloat64())
}

func TestCPUBackend_ScalarOpsUnsupportedScalar(t *testing.T) {
	backend := newTestBackend()
	x := f32(t, []float32{1, 2}, tensor.Shape{2})
	defer x.Release()

	for _, op := range []func(s *tensor.Scope) *tensor.RawTensor{
		func(s *tensor.Scope) *tensor.RawTensor { return s.MulScalar(x, 3) },
		func(s *tensor.Scope) *tensor.RawTensor { return s.AddScalar(x, "1") },
	} {
		err := tensor.Tidy(backend, func(s *tensor.Scope) error {
			op(s)
			return nil
		})
		assert.ErrorIs(t, err, tensor.ErrDType)
	}
}

func TestCPUBackend_ScaledAdd(t *testing.T) {
	backend := newTestBackend()
	c1 := tensor.Scalar[float32](tensor.DefaultAllocator, 0.9)
	c2 := tensor.Scalar[float32](tensor.DefaultAllocator, 0.1)
	a := f32(t, []float32{0.4, 1, 2}, tensor.Shape{3})
	b := f32(t, []float32{1, 4, 9}, tensor.Shape{3})

	fused := backend.ScaledAdd(c1, a, c2, b)
	composed := backend.Add(backend.Mul(c1, a), backend.Mul(c2, b))

	assert.Equal(t, composed.AsFloat32(), fused.AsFloat32(), "fused and composed results must be identical")
	assert.InDelta(t, 0.46, fused.AsFloat32()[0], 1e-6)
}

func TestCPUBackend_ScaledAddRequiresScalars(t *testing.T) {
	backend := newTestBackend()
	notScalar := f32(t, []float32{1, 2}, tensor.Shape{2})
	a := f32(t, []float32{1, 2}, tensor.Shape{2})

	assert.Panics(t, func() {
		backend.ScaledAdd(notScalar, a, notScalar, a)
	})
}

func TestCPUBackend_TrackedAllocations(t *testing.T) {
	tracker := tensor.NewTracker()
	backend := New(WithAllocator(tracker), WithParallel(parallel.Sequential()))

	z := backend.Zeros(tensor.Shape{4}, tensor.Float32)
	sq := backend.Square(z)
	require.Equal(t, 2, tracker.Live())

	tensor.Release(z, sq)
	assert.Equal(t, 0, tracker.Live())
}

func TestCPUBackend_ParallelMatchesSequential(t *testing.T) {
	seq := newTestBackend()
	par := New(WithParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}))

	n := 1000
	a := make([]float32, n)
	b := make([]float32, n)
	for i := range a {
		a[i] = float32(math.Sin(float64(i)))
		b[i] = float32(i%7) + 1
	}
	ta := f32(t, a, tensor.Shape{n})
	tb := f32(t, b, tensor.Shape{n})

	assert.Equal(t, seq.Div(ta, tb).AsFloat32(), par.Div(ta, tb).AsFloat32())
	assert.Equal(t, seq.Sqrt(tb).AsFloat32(), par.Sqrt(tb).AsFloat32())
}
