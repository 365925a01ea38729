package cpu

import (
	"github.com/born-ml/rmsprop/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, opAdd)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, opSub)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, opMul)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, opDiv)
}

// ScaledAdd computes c1·a + c2·b element-wise with broadcasting between a and b.
//
// c1 and c2 must hold a single element. Each product is rounded to the tensor
// dtype before the sum, so the result matches Mul followed by Add exactly.
func (cpu *CPUBackend) ScaledAdd(c1, a, c2, b *tensor.RawTensor) *tensor.RawTensor {
	if !c1.Shape().IsScalar() {
		panic(tensor.ShapeMismatch("scaledAdd", c1.Shape(), tensor.Shape{}))
	}
	if !c2.Shape().IsScalar() {
		panic(tensor.ShapeMismatch("scaledAdd", c2.Shape(), tensor.Shape{}))
	}
	k1, k2 := tensor.ScalarValue(c1), tensor.ScalarValue(c2)
	return cpu.binary("scaledAdd", a, b, binaryOp{
		f32: func(x, y float32) float32 { return float32(float32(k1)*x) + float32(float32(k2)*y) },
		f64: func(x, y float64) float64 { return float64(k1*x) + float64(k2*y) },
	})
}

// binaryOp holds the per-dtype element function of a binary operation.
type binaryOp struct {
	f32 func(x, y float32) float32
	f64 func(x, y float64) float64
}

var (
	opAdd = binaryOp{
		f32: func(x, y float32) float32 { return x + y },
		f64: func(x, y float64) float64 { return x + y },
	}
	opSub = binaryOp{
		f32: func(x, y float32) float32 { return x - y },
		f64: func(x, y float64) float64 { return x - y },
	}
	opMul = binaryOp{
		f32: func(x, y float32) float32 { return x * y },
		f64: func(x, y float64) float64 { return x * y },
	}
	opDiv = binaryOp{
		f32: func(x, y float32) float32 { return x / y },
		f64: func(x, y float64) float64 { return x / y },
	}
)

// binary dispatches a broadcasting binary op on dtype.
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, op binaryOp) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(tensor.DTypeMismatch(name, a.DType(), b.DType()))
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(name, a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result := cpu.newResult(name, outShape, a.DType())

	switch a.DType() {
	case tensor.Float32:
		if needsBroadcast {
			broadcastKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, op.f32, cpu.parallel)
		} else {
			vectorKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), op.f32, cpu.parallel)
		}
	case tensor.Float64:
		if needsBroadcast {
			broadcastKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, op.f64, cpu.parallel)
		} else {
			vectorKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), op.f64, cpu.parallel)
		}
	default:
		panic(&tensor.Error{Kind: tensor.KindDType, Op: name, Msg: a.DType().String()})
	}

	return result
}
