package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted buffer shared by RawTensor handles.
// The storage is dropped when the last handle releases it.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // guards data during deallocation
	owner    *Tracker   // nil for untracked allocations
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int, owner *Tracker) *tensorBuffer {
	buf := &tensorBuffer{
		data:  make([]byte, size),
		owner: owner,
	}
	buf.refCount.Store(1)
	return buf
}

// addRef increments the reference count (for Clone operations).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) != 0 {
		return
	}
	tb.mu.Lock()
	size := len(tb.data)
	tb.data = nil
	tb.mu.Unlock()
	if tb.owner != nil {
		tb.owner.freed(size)
	}
}

// RawTensor is the low-level tensor representation.
//
// A RawTensor is a handle onto a reference-counted buffer. Each handle holds
// exactly one reference, dropped by Release. Buffers are never reclaimed by
// the garbage collector on behalf of the caller: whoever owns a handle must
// release it, or hand it to something that will (a Scope, a Registry, a map).
type RawTensor struct {
	buffer   *tensorBuffer
	shape    Shape
	stride   []int
	dtype    DataType
	device   Device
	released atomic.Bool
}

// NewRaw creates a new untracked RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return newRaw(shape, dtype, device, nil)
}

func newRaw(shape Shape, dtype DataType, device Device, owner *Tracker) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()
	if owner != nil {
		owner.allocated(byteSize)
	}

	return &RawTensor{
		buffer: newTensorBuffer(byteSize, owner),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Allocator returns the allocator that owns this tensor's buffer.
// Results derived from the tensor should come from the same allocator.
func (r *RawTensor) Allocator() Allocator {
	if r.buffer.owner != nil {
		return r.buffer.owner
	}
	return DefaultAllocator
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	r.mustBeLive("data")
	return r.buffer.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or the handle was released.
func (r *RawTensor) AsFloat32() []float32 {
	r.mustBeLive("asFloat32")
	if r.dtype != Float32 {
		panic(&Error{Kind: KindDType, Op: "asFloat32", Msg: "tensor dtype is " + r.dtype.String()})
	}
	data := r.buffer.data
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64 or the handle was released.
func (r *RawTensor) AsFloat64() []float64 {
	r.mustBeLive("asFloat64")
	if r.dtype != Float64 {
		panic(&Error{Kind: KindDType, Op: "asFloat64", Msg: "tensor dtype is " + r.dtype.String()})
	}
	data := r.buffer.data
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), r.NumElements())
}

// ToFloat64 returns a copy of the elements widened to float64.
func (r *RawTensor) ToFloat64() []float64 {
	out := make([]float64, r.NumElements())
	switch r.dtype {
	case Float32:
		for i, v := range r.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, r.AsFloat64())
	}
	return out
}

// Clone creates a new handle sharing this tensor's buffer.
// The clone holds its own reference and must be released independently.
func (r *RawTensor) Clone() *RawTensor {
	r.mustBeLive("clone")
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Release drops this handle's reference to the buffer.
//
// Release is idempotent per handle: releasing a handle twice never touches
// the buffer a second time. The repeated attempt is reported to the owning
// Tracker, if any, so tests can assert that it never happens.
func (r *RawTensor) Release() {
	if !r.released.CompareAndSwap(false, true) {
		if r.buffer.owner != nil {
			r.buffer.owner.doubleRelease()
		}
		return
	}
	r.buffer.release()
}

// Released reports whether Release has been called on this handle.
func (r *RawTensor) Released() bool {
	return r.released.Load()
}

// String returns a short description of the tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v on %s", r.dtype, r.shape, r.device)
}

func (r *RawTensor) mustBeLive(op string) {
	if r.released.Load() {
		panic(&Error{Kind: KindReleased, Op: op, Msg: r.String()})
	}
}
