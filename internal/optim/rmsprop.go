package optim

import (
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/rmsprop/internal/graph"
	"github.com/born-ml/rmsprop/internal/nn"
	"github.com/born-ml/rmsprop/internal/tensor"
)

const epsilon = 1e-6

// Epsilon is the smoothing term added to the root of the accumulator.
const Epsilon float32 = epsilon

// stateKeyPrefix prefixes accumulator entries in a state dict.
const stateKeyPrefix = "cache."

// RMSProp implements RMSProp without momentum.
//
// Update rule, per parameter:
//
//	cache = γ·cache + (1-γ)·gradient²
//	param = param - lr·gradient / (√cache + ε)
//
// The decay factor γ is the only tunable besides the learning rate; there is
// no momentum term. The accumulator starts at zero for every parameter.
//
// RMSProp owns its scalar constants and every accumulator. Release them with
// Dispose. It does no locking: callers must not run two updates on the same
// optimizer, or on the same parameters, concurrently.
type RMSProp struct {
	lr    float32
	decay float32

	registry *nn.Registry
	backend  tensor.Backend
	alloc    tensor.Allocator
	logger   *slog.Logger

	// Rank-0 constants per dtype. Float32 is built up front, Float64 on
	// first use.
	constants map[tensor.DataType]stepConstants

	// Eager-mode accumulators by parameter name.
	cache map[string]*tensor.RawTensor

	graph graphState

	disposed bool
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
type RMSPropConfig struct {
	LR    float32 // Learning rate, finite and >= 0
	Decay float32 // Decay factor γ, in (0, 1)
}

// Option configures an RMSProp optimizer.
type Option func(*RMSProp)

// WithLogger sets the logger used for debug events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *RMSProp) {
		o.logger = logger
	}
}

// WithAllocator sets the allocator for the optimizer's scalar constants.
// Defaults to the backend's allocator when it exposes one.
func WithAllocator(alloc tensor.Allocator) Option {
	return func(o *RMSProp) {
		o.alloc = alloc
	}
}

// WithVariableNodes restricts graph-mode updates to nodes instead of every
// trainable node of the runtime.
func WithVariableNodes(nodes ...*graph.Node) Option {
	return func(o *RMSProp) {
		o.graph.specifiedNodes = nodes
	}
}

// NewRMSProp creates a new RMSProp optimizer.
//
// Parameters:
//   - registry: parameters updated by ApplyGradients (may be nil for graph-only use)
//   - config: learning rate and decay factor
//   - backend: math backend for eager updates
//
// Returns an error matching ErrInvalidConfig if Decay is outside (0, 1) or
// LR is negative or not finite.
func NewRMSProp(registry *nn.Registry, config RMSPropConfig, backend tensor.Backend, opts ...Option) (*RMSProp, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	o := &RMSProp{
		lr:        config.LR,
		decay:     config.Decay,
		registry:  registry,
		backend:   backend,
		cache:     make(map[string]*tensor.RawTensor),
		constants: make(map[tensor.DataType]stepConstants),
		graph:     newGraphState(),
	}
	if a, ok := backend.(interface{ Allocator() tensor.Allocator }); ok {
		o.alloc = a.Allocator()
	} else {
		o.alloc = tensor.DefaultAllocator
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	o.constants[tensor.Float32] = newStepConstants(o.alloc, config.LR, config.Decay, Epsilon)

	return o, nil
}

// MustNewRMSProp is like NewRMSProp but panics on an invalid config.
func MustNewRMSProp(registry *nn.Registry, config RMSPropConfig, backend tensor.Backend, opts ...Option) *RMSProp {
	o, err := NewRMSProp(registry, config, backend, opts...)
	if err != nil {
		panic(err)
	}
	return o
}

func (c RMSPropConfig) validate() error {
	lr := float64(c.LR)
	if math.IsNaN(lr) || math.IsInf(lr, 0) || lr < 0 {
		return errors.WithStack(&InvalidConfigError{
			Name:    "lr",
			Value:   c.LR,
			Message: "outside allowed range [0, Inf)",
		})
	}
	if !(c.Decay > 0 && c.Decay < 1) {
		return errors.WithStack(&InvalidConfigError{
			Name:    "decay",
			Value:   c.Decay,
			Message: "outside allowed range (0, 1)",
		})
	}
	return nil
}

// ApplyGradients updates each named parameter from its gradient.
//
// Parameters are processed in sorted name order, each one atomically: either
// both its value and its accumulator are replaced, or neither is. There is no
// rollback across parameters, so when an error is returned the parameters
// processed before the failing one keep their update.
//
// Errors:
//   - nn.ErrUnknownParameter: a name is not in the registry
//   - tensor.ErrShapeMismatch: a gradient does not have its parameter's shape
//   - tensor.ErrDType: a parameter is neither Float32 nor Float64
//   - ErrDisposed: the optimizer was disposed
func (o *RMSProp) ApplyGradients(grads map[string]*tensor.RawTensor) error {
	if o.disposed {
		return errors.WithStack(ErrDisposed)
	}
	if o.registry == nil {
		return errors.New("optim: ApplyGradients requires a parameter registry")
	}

	names := make([]string, 0, len(grads))
	for name := range grads {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		param, err := o.registry.Lookup(name)
		if err != nil {
			return err
		}

		k, err := o.constantsFor(param.Value().DType())
		if err != nil {
			return errors.Wrapf(err, "rmsprop: update %q", name)
		}

		if _, ok := o.cache[name]; !ok {
			o.cache[name] = o.backend.Zeros(param.Shape(), param.Value().DType())
			o.logger.Debug("rmsprop accumulator created", "param", name, "shape", param.Shape())
		}

		sl := &paramSlot{opt: o, param: param}
		if err := rmspropStep(o.backend, composedBlend, k, grads[name], sl); err != nil {
			return errors.Wrapf(err, "rmsprop: update %q", name)
		}
	}
	return nil
}

// constantsFor returns the step constants in dtype, building them on first
// use.
func (o *RMSProp) constantsFor(dtype tensor.DataType) (stepConstants, error) {
	if k, ok := o.constants[dtype]; ok {
		return k, nil
	}
	switch dtype {
	case tensor.Float64:
		k := newStepConstants(o.alloc, float64(o.lr), float64(o.decay), epsilon)
		o.constants[dtype] = k
		o.logger.Debug("rmsprop constants created", "dtype", dtype)
		return k, nil
	default:
		return stepConstants{}, errors.WithStack(&tensor.Error{
			Kind: tensor.KindDType,
			Op:   "rmsprop",
			Msg:  dtype.String(),
		})
	}
}

// paramSlot adapts a registry parameter and its named accumulator.
type paramSlot struct {
	opt   *RMSProp
	param *nn.Parameter
}

func (p *paramSlot) Value() *tensor.RawTensor {
	return p.param.Value()
}

func (p *paramSlot) Accumulator() *tensor.RawTensor {
	return p.opt.cache[p.param.Name()]
}

func (p *paramSlot) Commit(value, accumulator *tensor.RawTensor) error {
	if err := p.param.Assign(value); err != nil {
		return err
	}
	name := p.param.Name()
	old := p.opt.cache[name]
	p.opt.cache[name] = accumulator
	old.Release()
	return nil
}

// GetLR returns the learning rate.
func (o *RMSProp) GetLR() float32 {
	return o.lr
}

// Decay returns the decay factor γ.
func (o *RMSProp) Decay() float32 {
	return o.decay
}

// Epsilon returns the smoothing term.
func (o *RMSProp) Epsilon() float32 {
	return Epsilon
}

// Accumulator returns the eager-mode accumulator of a parameter.
// The optimizer keeps ownership; do not release the result.
func (o *RMSProp) Accumulator(name string) (*tensor.RawTensor, bool) {
	acc, ok := o.cache[name]
	return acc, ok
}

// StateDict exports the eager-mode accumulators.
//
// Keys are "cache.<param name>". Values are new handles onto the optimizer's
// buffers; the caller owns and must release them.
func (o *RMSProp) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor, len(o.cache))
	for name, acc := range o.cache {
		state[stateKeyPrefix+name] = acc.Clone()
	}
	return state
}

// LoadStateDict restores eager-mode accumulators.
//
// Every entry is validated before anything changes: the name must be a
// registered parameter and the shape must match it. The optimizer takes new
// handles on the provided tensors; the caller keeps its own.
func (o *RMSProp) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if o.disposed {
		return errors.WithStack(ErrDisposed)
	}
	if o.registry == nil && len(state) > 0 {
		return errors.New("optim: LoadStateDict requires a parameter registry")
	}

	loaded := make(map[string]*tensor.RawTensor, len(state))
	for key, value := range state {
		name, ok := strings.CutPrefix(key, stateKeyPrefix)
		if !ok {
			return errors.Errorf("optim: unexpected state key %q", key)
		}
		param, err := o.registry.Lookup(name)
		if err != nil {
			return err
		}
		if !value.Shape().Equal(param.Shape()) {
			return errors.WithStack(tensor.ShapeMismatch("load "+key, param.Shape(), value.Shape()))
		}
		if value.DType() != param.Value().DType() {
			return errors.WithStack(tensor.DTypeMismatch("load "+key, param.Value().DType(), value.DType()))
		}
		loaded[name] = value
	}

	for name, value := range loaded {
		if old, ok := o.cache[name]; ok {
			old.Release()
		}
		o.cache[name] = value.Clone()
	}
	return nil
}

// Dispose releases the scalar constants, the graph-mode accumulators and
// every eager-mode accumulator. It is safe to call more than once.
func (o *RMSProp) Dispose() {
	if o.disposed {
		return
	}
	o.disposed = true

	for dtype, k := range o.constants {
		k.release()
		delete(o.constants, dtype)
	}
	o.graph.dispose()

	for name, acc := range o.cache {
		acc.Release()
		delete(o.cache, name)
	}
	o.logger.Debug("rmsprop disposed")
}
