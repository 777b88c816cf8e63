package health

import (
	"context"
	"errors"
	"fmt"
)

// ErrPipelineStopped is reported by PipelineCheck once the pipeline no
// longer dispatches spans.
var ErrPipelineStopped = errors.New("span pipeline stopped")

// Stoppable is satisfied by *tracing.Pipeline.
type Stoppable interface {
	Stopped() bool
}

// PipelineCheck fails once p has been stopped.
func PipelineCheck(p Stoppable) CheckFunc {
	return func(context.Context) error {
		if p.Stopped() {
			return ErrPipelineStopped
		}
		return nil
	}
}

// SinkCheck wraps an error accessor such as Guard.ChromeErr or
// Guard.ExportErr. The check fails while errFn reports an error.
func SinkCheck(sink string, errFn func() error) CheckFunc {
	return func(context.Context) error {
		if err := errFn(); err != nil {
			return fmt.Errorf("%s sink: %w", sink, err)
		}
		return nil
	}
}
