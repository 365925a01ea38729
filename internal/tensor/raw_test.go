package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)

	assert.True(t, raw.Shape().Equal(Shape{2, 3}))
	assert.Equal(t, []int{3, 1}, raw.Strides())
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())
	assert.Equal(t, make([]float32, 6), raw.AsFloat32())
	assert.Equal(t, DefaultAllocator, raw.Allocator())
}

func TestNewRaw_InvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0}, Float32, CPU)
	assert.Error(t, err)
}

func TestScalarTensor(t *testing.T) {
	s := Scalar(DefaultAllocator, float32(0.25))
	assert.Empty(t, s.Shape())
	assert.Equal(t, 1, s.NumElements())
	assert.InDelta(t, 0.25, ScalarValue(s), 1e-9)
}

func TestRawTensor_CloneSharesBuffer(t *testing.T) {
	tracker := NewTracker()
	a := MustFromSlice(tracker, []float32{1, 2}, Shape{2})
	b := a.Clone()

	b.AsFloat32()[0] = 7
	assert.Equal(t, float32(7), a.AsFloat32()[0])

	a.Release()
	assert.Equal(t, 1, tracker.Live(), "clone keeps the buffer alive")
	assert.Equal(t, float32(7), b.AsFloat32()[0])

	b.Release()
	assert.Equal(t, 0, tracker.Live())
}

func TestRawTensor_ReleaseIsIdempotentPerHandle(t *testing.T) {
	tracker := NewTracker()
	a := MustFromSlice(tracker, []float32{1}, Shape{1})
	b := a.Clone()

	a.Release()
	a.Release()

	assert.True(t, a.Released())
	assert.False(t, b.Released())
	assert.Equal(t, 1, tracker.Live(), "second release must not drop the clone's reference")
	assert.Equal(t, uint64(1), tracker.DoubleReleases())

	b.Release()
	assert.Equal(t, 0, tracker.Live())
}

func TestRawTensor_UseAfterRelease(t *testing.T) {
	a := MustFromSlice(DefaultAllocator, []float32{1}, Shape{1})
	a.Release()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrReleased))
	}()
	_ = a.AsFloat32()
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := FromSlice(DefaultAllocator, []float64{1, 2, 3}, Shape{2, 2})
	assert.Error(t, err)
}

func TestToFloat64(t *testing.T) {
	a := MustFromSlice(DefaultAllocator, []float32{1.5, -2}, Shape{2})
	assert.Equal(t, []float64{1.5, -2}, a.ToFloat64())

	b := MustFromSlice(DefaultAllocator, []float64{3}, Shape{1})
	assert.Equal(t, []float64{3}, b.ToFloat64())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{}, Shape{2, 2}, Shape{2, 2}, true, false},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		got, broadcast, err := BroadcastShapes("test", tt.a, tt.b)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrShapeMismatch)
			continue
		}
		require.NoError(t, err)
		assert.True(t, got.Equal(tt.want), "%v + %v = %v", tt.a, tt.b, got)
		assert.Equal(t, tt.broadcast, broadcast)
	}
}

func TestParseDataType(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64} {
		parsed, ok := ParseDataType(dt.String())
		assert.True(t, ok)
		assert.Equal(t, dt, parsed)
	}
	_, ok := ParseDataType("int8")
	assert.False(t, ok)
}
