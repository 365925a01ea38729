package tensor

import "fmt"

// Verify that Scope implements Backend.
var _ Backend = (*Scope)(nil)

// Scope is a Backend decorator that owns every tensor it produces.
//
// Results are temporaries: Close releases all of them except the ones passed
// to Keep. Ownership of a kept tensor moves to the caller.
//
//	s := tensor.NewScope(backend)
//	defer s.Close()
//	sq := s.Square(g)           // released by Close
//	next := s.Keep(s.Add(p, sq)) // survives Close
type Scope struct {
	inner  Backend
	owned  []*RawTensor
	kept   map[*RawTensor]struct{}
	closed bool
}

// NewScope opens a scope over backend.
func NewScope(backend Backend) *Scope {
	return &Scope{
		inner: backend,
		kept:  make(map[*RawTensor]struct{}),
	}
}

// Inner returns the wrapped backend.
func (s *Scope) Inner() Backend {
	return s.inner
}

// Track hands t to the scope as a temporary and returns it.
func (s *Scope) Track(t *RawTensor) *RawTensor {
	if s.closed {
		panic("tensor: track on closed scope")
	}
	s.owned = append(s.owned, t)
	return t
}

// Keep excludes t from release at Close and returns it.
// t must have been produced by this scope.
func (s *Scope) Keep(t *RawTensor) *RawTensor {
	s.kept[t] = struct{}{}
	return t
}

// Close releases every tracked tensor that was not kept. Closing twice is a no-op.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.owned {
		if _, ok := s.kept[t]; ok {
			continue
		}
		t.Release()
	}
	s.owned = nil
}

// Name returns the backend name.
func (s *Scope) Name() string {
	return "Scope(" + s.inner.Name() + ")"
}

// Device returns the compute device.
func (s *Scope) Device() Device {
	return s.inner.Device()
}

// Add performs element-wise addition.
func (s *Scope) Add(a, b *RawTensor) *RawTensor { return s.Track(s.inner.Add(a, b)) }

// Sub performs element-wise subtraction.
func (s *Scope) Sub(a, b *RawTensor) *RawTensor { return s.Track(s.inner.Sub(a, b)) }

// Mul performs element-wise multiplication.
func (s *Scope) Mul(a, b *RawTensor) *RawTensor { return s.Track(s.inner.Mul(a, b)) }

// Div performs element-wise division.
func (s *Scope) Div(a, b *RawTensor) *RawTensor { return s.Track(s.inner.Div(a, b)) }

// Square computes x².
func (s *Scope) Square(x *RawTensor) *RawTensor { return s.Track(s.inner.Square(x)) }

// Sqrt computes √x.
func (s *Scope) Sqrt(x *RawTensor) *RawTensor { return s.Track(s.inner.Sqrt(x)) }

// AddScalar adds a scalar to every element.
func (s *Scope) AddScalar(x *RawTensor, scalar any) *RawTensor {
	return s.Track(s.inner.AddScalar(x, scalar))
}

// MulScalar multiplies every element by a scalar.
func (s *Scope) MulScalar(x *RawTensor, scalar any) *RawTensor {
	return s.Track(s.inner.MulScalar(x, scalar))
}

// ScaledAdd computes c1·a + c2·b.
func (s *Scope) ScaledAdd(c1, a, c2, b *RawTensor) *RawTensor {
	return s.Track(s.inner.ScaledAdd(c1, a, c2, b))
}

// Zeros allocates a zero-filled temporary.
func (s *Scope) Zeros(shape Shape, dtype DataType) *RawTensor {
	return s.Track(s.inner.Zeros(shape, dtype))
}

// Tidy runs fn inside a fresh Scope over backend and closes the scope when fn
// returns, including when it panics.
//
// A panic carrying *Error (shape, dtype or use-after-release failures raised by
// backends) is recovered and returned as the error. Any other panic propagates
// after the scope is closed.
func Tidy(backend Backend, fn func(s *Scope) error) (err error) {
	s := NewScope(backend)
	defer s.Close()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if terr, ok := r.(*Error); ok {
			err = terr
			return
		}
		panic(r)
	}()
	return fn(s)
}

// Release releases every non-nil tensor in ts.
func Release(ts ...*RawTensor) {
	for _, t := range ts {
		if t != nil {
			t.Release()
		}
	}
}

// AssertSameShape panics with a shape mismatch error if a and b differ.
func AssertSameShape(op string, a, b *RawTensor) {
	if !a.Shape().Equal(b.Shape()) {
		panic(ShapeMismatch(op, a.Shape(), b.Shape()))
	}
	if a.DType() != b.DType() {
		panic(DTypeMismatch(op, a.DType(), b.DType()))
	}
}

// String describes the scope for debugging.
func (s *Scope) String() string {
	return fmt.Sprintf("Scope(%s, owned=%d, kept=%d)", s.inner.Name(), len(s.owned), len(s.kept))
}
