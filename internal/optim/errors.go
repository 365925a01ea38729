package optim

import (
	"fmt"

	"github.com/pkg/errors"
)

// Optimizer errors.
var (
	// ErrInvalidConfig matches every *InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid optimizer config")
	// ErrDisposed is returned by operations on a disposed optimizer.
	ErrDisposed = errors.New("optimizer disposed")
	// ErrBatchState is returned when graph-mode phases are called out of order.
	ErrBatchState = errors.New("batch phase out of order")
)

// InvalidConfigError reports a hyper-parameter outside its allowed range.
type InvalidConfigError struct {
	Name    string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Name, e.Value, e.Message)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
