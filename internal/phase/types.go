package phase

import "math"

// State is a point in phase space.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + other[i]
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] - other[i]
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// AddScaled returns s + factor*other without touching either operand.
func (s State) AddScaled(factor float64, other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + factor*other[i]
	}
	return result
}

// Params is an opaque parameter set. It is forwarded unmodified into the
// vector field; nothing in this module inspects its contents.
type Params any

// Field is the right-hand side of an autonomous or non-autonomous ODE.
type Field interface {
	Derive(t float64, x State, p Params) State
	Dim() int
}

type fieldFunc struct {
	dim int
	fn  func(t float64, x State, p Params) State
}

func (f fieldFunc) Derive(t float64, x State, p Params) State { return f.fn(t, x, p) }
func (f fieldFunc) Dim() int                                  { return f.dim }

// NewField wraps a plain function as a Field of the given dimension.
func NewField(dim int, fn func(t float64, x State, p Params) State) Field {
	return fieldFunc{dim: dim, fn: fn}
}

// JVP is a Jacobian-vector product: v -> J(t, x) * v.
type JVP func(t float64, x State, p Params, v State) State

// Augment builds the variational right-hand side on the doubled state
// [x | delta]: the base dynamics on the first block and the linearized
// dynamics d(delta)/dt = J(x(t)) * delta on the second.
func Augment(f Field, jvp JVP) Field {
	n := f.Dim()
	return NewField(2*n, func(t float64, xs State, p Params) State {
		x, delta := State(xs[:n]), State(xs[n:])
		out := make(State, 2*n)
		copy(out[:n], f.Derive(t, x, p))
		copy(out[n:], jvp(t, x, p, delta))
		return out
	})
}
