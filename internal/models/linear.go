package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kdelattre/orbitflow/internal/phase"
)

// Linear is the system x' = A*x for a constant coefficient matrix. Its
// variational equation coincides with the state dynamics, which makes it
// the reference case for derivative-accuracy checks.
type Linear struct {
	a *mat.Dense
	n int
}

func NewLinear(a *mat.Dense) *Linear {
	r, c := a.Dims()
	if r != c {
		panic("models: linear coefficient matrix must be square")
	}
	return &Linear{a: mat.DenseCopyOf(a), n: r}
}

// NewDiagonal builds a Linear with the given diagonal rates.
func NewDiagonal(rates ...float64) *Linear {
	n := len(rates)
	a := mat.NewDense(n, n, nil)
	for i, r := range rates {
		a.Set(i, i, r)
	}
	return &Linear{a: a, n: n}
}

func (l *Linear) Name() string { return "linear" }
func (l *Linear) Dim() int { return l.n }

func (l *Linear) Derive(_ float64, x phase.State, _ phase.Params) phase.State {
	return l.mul(x)
}

func (l *Linear) JVP(_ float64, _ phase.State, _ phase.Params, v phase.State) phase.State {
	return l.mul(v)
}

func (l *Linear) mul(v phase.State) phase.State {
	out := mat.NewVecDense(l.n, nil)
	out.MulVec(l.a, mat.NewVecDense(l.n, v))
	return phase.State(out.RawVector().Data)
}

func (l *Linear) DefaultState() phase.State {
	x := make(phase.State, l.n)
	for i := range x {
		x[i] = 1
	}
	return x
}
