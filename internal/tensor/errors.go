package tensor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies tensor library failures.
type ErrorKind int

// Error kinds raised by backends and buffer accessors.
const (
	KindShapeMismatch ErrorKind = iota + 1
	KindDType
	KindReleased
)

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrDType         = errors.New("unsupported dtype")
	ErrReleased      = errors.New("tensor already released")
)

// Error is the failure raised by tensor operations.
//
// Backends panic with *Error, following the convention that invalid shapes
// are programming errors. Tidy recovers these panics and returns them.
type Error struct {
	Kind ErrorKind
	Op   string // operation name, e.g. "add"
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.sentinel(), e.Msg)
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindShapeMismatch:
		return ErrShapeMismatch
	case KindDType:
		return ErrDType
	case KindReleased:
		return ErrReleased
	default:
		return nil
	}
}

// ShapeMismatch builds a shape mismatch error for op.
func ShapeMismatch(op string, a, b Shape) *Error {
	return &Error{Kind: KindShapeMismatch, Op: op, Msg: fmt.Sprintf("%v vs %v", a, b)}
}

// DTypeMismatch builds a dtype error for op.
func DTypeMismatch(op string, a, b DataType) *Error {
	return &Error{Kind: KindDType, Op: op, Msg: fmt.Sprintf("%s vs %s", a, b)}
}
