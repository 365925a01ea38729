package tensor

// Backend defines the numeric operations the optimizer needs.
//
// Contract shared by all implementations:
//   - every operation allocates and returns a new tensor; inputs are never mutated
//   - binary operations broadcast NumPy-style (rank-0 scalars broadcast to anything)
//   - invalid shapes or dtypes panic with *Error; use Tidy to turn them into errors
//
// Implementations:
//   - cpu.CPUBackend: pure Go kernels
//   - Scope: decorator that records results for scoped release
type Backend interface {
	// Element-wise binary operations
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Element-wise unary operations
	Square(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor

	// Scalar operations (element-wise with a Go scalar of the tensor's dtype)
	AddScalar(x *RawTensor, scalar any) *RawTensor
	MulScalar(x *RawTensor, scalar any) *RawTensor

	// ScaledAdd computes c1·a + c2·b in one pass. c1 and c2 are rank-0 tensors.
	ScaledAdd(c1, a, c2, b *RawTensor) *RawTensor

	// Zeros allocates a zero-filled tensor.
	Zeros(shape Shape, dtype DataType) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
