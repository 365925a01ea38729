// Package cpu implements the CPU backend in pure Go.
package cpu

import (
	"fmt"

	"github.com/born-ml/rmsprop/internal/parallel"
	"github.com/born-ml/rmsprop/internal/tensor"
)

// Verify that CPUBackend implements Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend implements tensor operations on CPU.
//
// Every operation allocates its result through the backend's allocator and
// leaves its inputs untouched, so callers keep full control over the
// lifetime of the buffers they pass in.
type CPUBackend struct {
	device   tensor.Device
	alloc    tensor.Allocator
	parallel parallel.Config
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithAllocator routes every result allocation through alloc.
func WithAllocator(alloc tensor.Allocator) Option {
	return func(cpu *CPUBackend) {
		cpu.alloc = alloc
	}
}

// WithParallel overrides the element-wise parallelism settings.
func WithParallel(cfg parallel.Config) Option {
	return func(cpu *CPUBackend) {
		cpu.parallel = cfg
	}
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	cpu := &CPUBackend{
		device:   tensor.CPU,
		alloc:    tensor.DefaultAllocator,
		parallel: parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(cpu)
	}
	return cpu
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Allocator returns the allocator used for results.
func (cpu *CPUBackend) Allocator() tensor.Allocator {
	return cpu.alloc
}

// Zeros allocates a zero-filled tensor.
func (cpu *CPUBackend) Zeros(shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	return cpu.newResult("zeros", shape, dtype)
}

func (cpu *CPUBackend) newResult(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := cpu.alloc.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}
