package flow

import (
	"context"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

// Differentiator computes the flow derivative along one direction, either
// serially or as a column-ordered batch. The two strategies below satisfy
// the same contract; callers stay agnostic to which backs a given Flow.
type Differentiator interface {
	Differential(ctx context.Context, x, dx phase.State, p phase.Params, tau float64) (Differential, error)
	DifferentialBatch(ctx context.Context, xs, dxs []phase.State, p phase.Params, taus []float64, workers int) ([]Differential, error)
}

// ExactVariational integrates the augmented system [x | delta] whose
// second block carries the linearized dynamics, then splits the endpoint.
// Prob must already encode the variational right-hand side; this layer
// never forms a Jacobian itself.
type ExactVariational struct {
	Prob phase.Problem
	Alg  solver.Algorithm
	Opts solver.Options
}

func (v *ExactVariational) Differential(ctx context.Context, x, dx phase.State, p phase.Params, tau float64) (Differential, error) {
	prob, err := v.augmented(x, dx, p, tau)
	if err != nil {
		return Differential{}, err
	}
	t, uu, err := solver.Endpoint(ctx, prob, v.Alg, v.Opts)
	if err != nil {
		return Differential{}, err
	}
	u, du := split(uu)
	return Differential{T: t, U: u, DU: du}, nil
}

func (v *ExactVariational) DifferentialBatch(ctx context.Context, xs, dxs []phase.State, p phase.Params, taus []float64, workers int) ([]Differential, error) {
	probs := make([]phase.Problem, len(xs))
	for i := range xs {
		prob, err := v.augmented(xs[i], dxs[i], p, taus[i])
		if err != nil {
			return nil, err
		}
		probs[i] = prob
	}
	summaries, err := solver.Ensemble(ctx, probs, v.Alg, v.Opts, solver.EndpointReduction{}, workers)
	if err != nil {
		return nil, err
	}
	ds := make([]Differential, len(summaries))
	for i, s := range summaries {
		u, du := split(s.U)
		ds[i] = Differential{T: s.T, U: u, DU: du}
	}
	return ds, nil
}

func (v *ExactVariational) augmented(x, dx phase.State, p phase.Params, tau float64) (phase.Problem, error) {
	n := len(x)
	if v.Prob.Field.Dim() != 2*n {
		return phase.Problem{}, phase.ErrDimensionMismatch
	}
	xx := make(phase.State, 2*n)
	copy(xx[:n], x)
	copy(xx[n:], dx)
	return v.Prob.Remake(xx, p, tau), nil
}

func split(uu phase.State) (phase.State, phase.State) {
	n := len(uu) / 2
	return phase.State(uu[:n]).Clone(), phase.State(uu[n:]).Clone()
}
