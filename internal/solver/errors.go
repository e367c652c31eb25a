package solver

import (
	"errors"
	"fmt"
)

// Integration failures. These are always surfaced to the caller, never
// downgraded to a default value.
var (
	// ErrUnstable indicates the trajectory produced a NaN or Inf component.
	ErrUnstable = errors.New("solver: state diverged (NaN or Inf)")

	// ErrStepTooSmall indicates the adaptive step collapsed below MinDt.
	ErrStepTooSmall = errors.New("solver: adaptive step below minimum")

	// ErrMaxSteps indicates the step budget ran out before reaching the
	// horizon.
	ErrMaxSteps = errors.New("solver: step budget exhausted")
)

// StepError wraps an integration failure with the step and time at which it
// occurred.
type StepError struct {
	Step int
	T    float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %s", e.Step, e.T, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
