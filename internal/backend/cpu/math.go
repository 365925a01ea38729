package cpu

import (
	"math"

	"github.com/born-ml/rmsprop/internal/tensor"
)

// Sqrt computes element-wise square root: sqrt(x).
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sqrt", x,
		func(v float32) float32 { return float32(math.Sqrt(float64(v))) },
		math.Sqrt,
	)
}

// Square computes element-wise x².
func (cpu *CPUBackend) Square(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("square", x,
		func(v float32) float32 { return v * v },
		func(v float64) float64 { return v * v },
	)
}

func (cpu *CPUBackend) unary(name string, x *tensor.RawTensor, f32 func(float32) float32, f64 func(float64) float64) *tensor.RawTensor {
	result := cpu.newResult(name, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		unaryKernel(result.AsFloat32(), x.AsFloat32(), f32, cpu.parallel)
	case tensor.Float64:
		unaryKernel(result.AsFloat64(), x.AsFloat64(), f64, cpu.parallel)
	default:
		panic(&tensor.Error{Kind: tensor.KindDType, Op: name, Msg: x.DType().String()})
	}

	return result
}
