package analysis

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kdelattre/orbitflow/internal/flow"
	"github.com/kdelattre/orbitflow/internal/phase"
)

// ErrNoConvergence indicates the shooting Newton iteration ran out of
// iterations before the residual dropped below tolerance.
var ErrNoConvergence = errors.New("analysis: shooting did not converge")

// Shooting finds a periodic orbit by Newton iteration on the map
// F(x, T) = [flow(x, T) - x ; phase anchor], treating both the point on
// the orbit and the period as unknowns. The phase anchor pins the orbit
// against sliding along itself: it constrains x to the hyperplane through
// the initial guess with normal f(x_guess).
type Shooting struct {
	Flow    *flow.Flow
	Field   phase.Field
	MaxIter int
	Tol     float64
}

// Orbit is a converged periodic orbit.
type Orbit struct {
	X          phase.State
	Period     float64
	Iterations int
	Residual   float64
}

// NewShooting uses the common defaults: 25 iterations, residual 1e-9.
func NewShooting(fl *flow.Flow, field phase.Field) *Shooting {
	return &Shooting{Flow: fl, Field: field, MaxIter: 25, Tol: 1e-9}
}

// Solve runs Newton from the initial guess (x0, period0). The state block
// of each Jacobian is assembled from one parallel ensemble-differential
// batch (n directions); the period column is the vector field at the
// orbit endpoint.
func (s *Shooting) Solve(ctx context.Context, x0 phase.State, p phase.Params, period0 float64) (Orbit, error) {
	n := len(x0)
	if n != s.Field.Dim() {
		return Orbit{}, phase.ErrDimensionMismatch
	}
	if period0 <= 0 {
		return Orbit{}, fmt.Errorf("analysis: initial period must be positive, got %g", period0)
	}

	anchor := x0.Clone()
	fAnchor := s.Field.Derive(0, anchor, p)

	x := x0.Clone()
	period := period0

	for iter := 1; iter <= s.MaxIter; iter++ {
		endpoint, err := s.Flow.At(ctx, x, p, period)
		if err != nil {
			return Orbit{}, err
		}

		// Residual: closure error plus the phase condition.
		res := mat.NewVecDense(n+1, nil)
		for i := 0; i < n; i++ {
			res.SetVec(i, endpoint[i]-x[i])
		}
		phaseRes := 0.0
		for i := 0; i < n; i++ {
			phaseRes += fAnchor[i] * (x[i] - anchor[i])
		}
		res.SetVec(n, phaseRes)

		if mat.Norm(res, 2) < s.Tol {
			return Orbit{X: x, Period: period, Iterations: iter, Residual: mat.Norm(res, 2)}, nil
		}

		jac, err := s.jacobian(ctx, x, p, period, endpoint, fAnchor)
		if err != nil {
			return Orbit{}, err
		}

		var delta mat.VecDense
		res.ScaleVec(-1, res)
		if err := delta.SolveVec(jac, res); err != nil {
			return Orbit{}, fmt.Errorf("analysis: singular shooting jacobian: %w", err)
		}

		for i := 0; i < n; i++ {
			x[i] += delta.AtVec(i)
		}
		period += delta.AtVec(n)
		if period <= 0 {
			return Orbit{}, fmt.Errorf("analysis: period went non-positive at iteration %d", iter)
		}
	}

	return Orbit{}, ErrNoConvergence
}

func (s *Shooting) jacobian(ctx context.Context, x phase.State, p phase.Params, period float64, endpoint, fAnchor phase.State) (*mat.Dense, error) {
	n := len(x)

	// All n monodromy columns in one parallel batch.
	xs := make([]phase.State, n)
	dxs := make([]phase.State, n)
	taus := make([]float64, n)
	for j := 0; j < n; j++ {
		xs[j] = x
		dir := make(phase.State, n)
		dir[j] = 1
		dxs[j] = dir
		taus[j] = period
	}
	cols, err := s.Flow.EnsembleDifferential(ctx, xs, dxs, p, taus)
	if err != nil {
		return nil, err
	}

	jac := mat.NewDense(n+1, n+1, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v := cols[j].DU[i]
			if i == j {
				v -= 1
			}
			jac.Set(i, j, v)
		}
	}
	fEnd := s.Field.Derive(period, endpoint, p)
	for i := 0; i < n; i++ {
		jac.Set(i, n, fEnd[i])
		jac.Set(n, i, fAnchor[i])
	}
	jac.Set(n, n, 0)

	return jac, nil
}
