package phase

// Problem is an immutable ODE problem template: a vector field bound to a
// parameter set, an initial condition, and a horizon. Integration always
// runs over [0, TFinal].
type Problem struct {
	Field  Field
	P      Params
	X0     State
	TFinal float64
}

// NewProblem binds a field to its parameters and default initial condition.
func NewProblem(f Field, p Params, x0 State, tFinal float64) Problem {
	return Problem{Field: f, P: p, X0: x0.Clone(), TFinal: tFinal}
}

// Remake derives a fresh problem from the template with a new initial
// condition and horizon. A nil params value keeps the template's binding.
// The template itself is never mutated.
func (pb Problem) Remake(x0 State, p Params, tFinal float64) Problem {
	pb.X0 = x0.Clone()
	if p != nil {
		pb.P = p
	}
	pb.TFinal = tFinal
	return pb
}

// Validate fails fast on malformed problems, before any integration.
func (pb Problem) Validate() error {
	if pb.Field == nil {
		return ErrNoField
	}
	if len(pb.X0) != pb.Field.Dim() {
		return ErrDimensionMismatch
	}
	if pb.TFinal < 0 {
		return ErrNegativeDuration
	}
	return nil
}
