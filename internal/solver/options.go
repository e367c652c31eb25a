package solver

import "fmt"

// Options configures one integration. The flow layer passes these through
// untouched; only the drivers and adaptive algorithms interpret them.
type Options struct {
	// Dt is the fixed step size, or the initial step for adaptive
	// algorithms.
	Dt float64
	// AbsTol and RelTol bound the local error estimate of adaptive
	// algorithms.
	AbsTol float64
	RelTol float64
	// MinDt is the smallest step an adaptive algorithm may take before
	// giving up with ErrStepTooSmall.
	MinDt float64
	// MaxSteps bounds the number of accepted steps per trajectory.
	MaxSteps int
}

func DefaultOptions() Options {
	return Options{
		Dt:       1e-3,
		AbsTol:   1e-8,
		RelTol:   1e-8,
		MinDt:    1e-12,
		MaxSteps: 10_000_000,
	}
}

func (o Options) validate() error {
	if o.Dt <= 0 {
		return fmt.Errorf("solver: dt must be positive, got %g", o.Dt)
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("solver: max steps must be positive, got %d", o.MaxSteps)
	}
	return nil
}
