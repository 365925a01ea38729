package cpu

import (
	"fmt"

	"github.com/born-ml/rmsprop/internal/tensor"
)

// Scalar operations - element-wise operations with a Go scalar value.

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		s := asFloat32(scalar, "mulScalar")
		return cpu.unary("mulScalar", x, func(v float32) float32 { return v * s }, nil)
	case tensor.Float64:
		s := asFloat64(scalar, "mulScalar")
		return cpu.unary("mulScalar", x, nil, func(v float64) float64 { return v * s })
	default:
		panic(&tensor.Error{Kind: tensor.KindDType, Op: "mulScalar", Msg: x.DType().String()})
	}
}

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		s := asFloat32(scalar, "addScalar")
		return cpu.unary("addScalar", x, func(v float32) float32 { return v + s }, nil)
	case tensor.Float64:
		s := asFloat64(scalar, "addScalar")
		return cpu.unary("addScalar", x, nil, func(v float64) float64 { return v + s })
	default:
		panic(&tensor.Error{Kind: tensor.KindDType, Op: "addScalar", Msg: x.DType().String()})
	}
}

func asFloat32(scalar any, op string) float32 {
	switch s := scalar.(type) {
	case float32:
		return s
	case float64:
		return float32(s)
	default:
		panic(&tensor.Error{Kind: tensor.KindDType, Op: op, Msg: fmt.Sprintf("scalar type %T", scalar)})
	}
}

func asFloat64(scalar any, op string) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	default:
		panic(&tensor.Error{Kind: tensor.KindDType, Op: op, Msg: fmt.Sprintf("scalar type %T", scalar)})
	}
}
