package optim

import (
	"github.com/born-ml/rmsprop/internal/tensor"
)

// slot is the state a single RMSProp step reads and replaces: one parameter
// in eager mode, one variable node in graph mode.
type slot interface {
	// Value returns the current parameter value.
	Value() *tensor.RawTensor
	// Accumulator returns the current squared-gradient average.
	Accumulator() *tensor.RawTensor
	// Commit installs the new value and accumulator and releases the old ones.
	// On error nothing has changed and ownership of both stays with the caller.
	Commit(value, accumulator *tensor.RawTensor) error
}

// blendFunc computes c1·a + c2·b inside s.
type blendFunc func(s *tensor.Scope, c1, a, c2, b *tensor.RawTensor) *tensor.RawTensor

// composedBlend builds c1·a + c2·b from element-wise Mul and Add.
func composedBlend(s *tensor.Scope, c1, a, c2, b *tensor.RawTensor) *tensor.RawTensor {
	return s.Add(s.Mul(c1, a), s.Mul(c2, b))
}

// fusedBlend uses the backend's single-pass ScaledAdd.
func fusedBlend(s *tensor.Scope, c1, a, c2, b *tensor.RawTensor) *tensor.RawTensor {
	return s.ScaledAdd(c1, a, c2, b)
}

// stepConstants are the rank-0 tensors a step reads. c is the negated,
// possibly batch-scaled, learning rate.
type stepConstants struct {
	c             *tensor.RawTensor
	epsilon       *tensor.RawTensor
	gamma         *tensor.RawTensor
	oneMinusGamma *tensor.RawTensor
	one           *tensor.RawTensor
}

func newStepConstants[T tensor.Float](alloc tensor.Allocator, lr, decay, eps T) stepConstants {
	return stepConstants{
		c:             tensor.Scalar(alloc, -lr),
		epsilon:       tensor.Scalar(alloc, eps),
		gamma:         tensor.Scalar(alloc, decay),
		oneMinusGamma: tensor.Scalar(alloc, 1-decay),
		one:           tensor.Scalar(alloc, T(1)),
	}
}

func (k stepConstants) release() {
	tensor.Release(k.c, k.epsilon, k.gamma, k.oneMinusGamma, k.one)
}

// rmspropStep applies one update to sl:
//
//	cache' = γ·cache + (1-γ)·g²
//	value' = c·(g / (√cache' + ε)) + value
//
// Intermediates are released before returning. cache' and value' are handed
// to sl.Commit; if either the math or the commit fails, sl is unchanged and
// nothing allocated here stays live.
func rmspropStep(backend tensor.Backend, blend blendFunc, k stepConstants, grad *tensor.RawTensor, sl slot) error {
	var nextValue, nextCache *tensor.RawTensor

	err := tensor.Tidy(backend, func(s *tensor.Scope) error {
		gradSquare := s.Mul(grad, grad)
		nextCache = s.Keep(blend(s, k.gamma, sl.Accumulator(), k.oneMinusGamma, gradSquare))

		denom := s.Add(s.Sqrt(nextCache), k.epsilon)
		nextValue = s.Keep(blend(s, k.c, s.Div(grad, denom), k.one, sl.Value()))
		return nil
	})
	if err != nil {
		tensor.Release(nextValue, nextCache)
		return err
	}

	if err := sl.Commit(nextValue, nextCache); err != nil {
		tensor.Release(nextValue, nextCache)
		return err
	}
	return nil
}
