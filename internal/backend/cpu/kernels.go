package cpu

import (
	"github.com/born-ml/rmsprop/internal/parallel"
	"github.com/born-ml/rmsprop/internal/tensor"
)

// vectorKernel applies f to same-shape operands, chunked across workers.
func vectorKernel[T tensor.Float](dst, a, b []T, f func(x, y T) T, cfg parallel.Config) {
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(a[i], b[i])
		}
	}, cfg)
}

// unaryKernel applies f to every element of src.
func unaryKernel[T tensor.Float](dst, src []T, f func(x T) T, cfg parallel.Config) {
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(src[i])
		}
	}, cfg)
}

// broadcastKernel applies f over outShape, reading a and b through broadcast strides.
func broadcastKernel[T tensor.Float](dst, a, b []T, aShape, bShape, outShape tensor.Shape, f func(x, y T) T, cfg parallel.Config) {
	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(aShape, outShape)
	bStrides := computeBroadcastStridesForShape(bShape, outShape)

	parallel.ForRange(outShape.NumElements(), func(start, end int) {
		for i := start; i < end; i++ {
			aIdx := computeFlatIndex(i, outStrides, aStrides)
			bIdx := computeFlatIndex(i, outStrides, bStrides)
			dst[i] = f(a[aIdx], b[bIdx])
		}
	}, cfg)
}
