package dynamo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState      = errors.New("dynamo: plant state is not finite")
	ErrUnstable          = errors.New("dynamo: plant diverged")
	ErrDimensionMismatch = errors.New("dynamo: vector does not fit the system")
)

// StepError records which integration step failed and at what simulated
// time.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.3fs): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
