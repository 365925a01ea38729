package graph

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
)

// ExampleFunc runs the forward and backward pass of one example and adds the
// resulting gradients of every variable node into bc.Gradients.
type ExampleFunc func(batch, example int, bc *BatchContext) error

// Session drives BatchOptimizers through the per-batch protocol.
type Session struct {
	logger *slog.Logger
}

// NewSession creates a session. A nil logger discards output.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{logger: logger}
}

// RunBatch runs BeforeBatch, then bc.BatchSize examples each followed by
// AfterExample, then AfterBatch.
//
// ctx is checked once before the batch starts. A started batch always runs to
// completion or fails outright: when an example or the optimizer fails after
// BeforeBatch succeeded, AbortBatch discards the partial batch so the next
// RunBatch starts clean.
func (s *Session) RunBatch(ctx context.Context, bc *BatchContext, opt BatchOptimizer, batch int, step ExampleFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bc.BatchSize <= 0 {
		return errors.Errorf("graph: batch size must be positive, got %d", bc.BatchSize)
	}

	if err := opt.BeforeBatch(bc); err != nil {
		return errors.Wrapf(err, "batch %d: before batch", batch)
	}
	done := false
	defer func() {
		if !done {
			opt.AbortBatch(bc)
			s.logger.Debug("batch aborted", "batch", batch)
		}
	}()

	for i := 0; i < bc.BatchSize; i++ {
		if err := step(batch, i, bc); err != nil {
			bc.Gradients.Dispose()
			return errors.Wrapf(err, "batch %d: example %d", batch, i)
		}
		err := opt.AfterExample(bc)
		bc.Gradients.Dispose()
		if err != nil {
			return errors.Wrapf(err, "batch %d: after example %d", batch, i)
		}
	}

	if err := opt.AfterBatch(bc); err != nil {
		return errors.Wrapf(err, "batch %d: after batch", batch)
	}
	done = true
	s.logger.Debug("batch complete", "batch", batch, "examples", bc.BatchSize)
	return nil
}

// Train runs numBatches consecutive batches.
func (s *Session) Train(ctx context.Context, bc *BatchContext, opt BatchOptimizer, numBatches int, step ExampleFunc) error {
	for b := 0; b < numBatches; b++ {
		if err := s.RunBatch(ctx, bc, opt, b, step); err != nil {
			return err
		}
	}
	return nil
}
