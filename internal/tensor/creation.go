package tensor

import "fmt"

// FromSlice creates a tensor from a Go slice using alloc.
// The slice is copied into the tensor's memory.
//
// Example:
//
//	w, err := tensor.FromSlice(tensor.DefaultAllocator, []float32{1, 2, 3}, tensor.Shape{3})
func FromSlice[T Float](alloc Allocator, data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := alloc.NewRaw(shape, inferDataType(dummy), CPU)
	if err != nil {
		return nil, err
	}

	switch d := any(data).(type) {
	case []float32:
		copy(raw.AsFloat32(), d)
	case []float64:
		copy(raw.AsFloat64(), d)
	}
	return raw, nil
}

// MustFromSlice is like FromSlice but panics on error.
func MustFromSlice[T Float](alloc Allocator, data []T, shape Shape) *RawTensor {
	raw, err := FromSlice(alloc, data, shape)
	if err != nil {
		panic(err)
	}
	return raw
}

// Scalar creates a rank-0 tensor holding v.
func Scalar[T Float](alloc Allocator, v T) *RawTensor {
	return MustFromSlice(alloc, []T{v}, Shape{})
}

// ScalarValue returns the single element of a rank-0 or one-element tensor as float64.
func ScalarValue(r *RawTensor) float64 {
	if !r.Shape().IsScalar() {
		panic(ShapeMismatch("scalarValue", r.Shape(), Shape{}))
	}
	return r.ToFloat64()[0]
}
