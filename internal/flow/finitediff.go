package flow

import (
	"context"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

// DefaultFDStep is the forward-difference step used when the caller does
// not override it. It is absolute, not scaled by the state: a fixed step
// keeps the derivative of one Flow reproducible across nearby states,
// which the serial differential path exists to guarantee.
const DefaultFDStep = 1e-9

// FiniteDifference approximates the flow derivative by a forward
// difference quotient between one perturbed and one unperturbed flow
// evaluation: du ~= (flow(x + delta*dx) - flow(x)) / delta. Total cost is
// exactly two flow calls. The result carries an O(delta) bias; shrinking
// delta trades that bias for floating-point cancellation.
type FiniteDifference struct {
	Prob  phase.Problem
	Alg   solver.Algorithm
	Opts  solver.Options
	Delta float64
}

func (fd *FiniteDifference) step() float64 {
	if fd.Delta > 0 {
		return fd.Delta
	}
	return DefaultFDStep
}

func (fd *FiniteDifference) Differential(ctx context.Context, x, dx phase.State, p phase.Params, tau float64) (Differential, error) {
	delta := fd.step()

	t, u, err := solver.Endpoint(ctx, fd.Prob.Remake(x, p, tau), fd.Alg, fd.Opts)
	if err != nil {
		return Differential{}, err
	}
	_, up, err := solver.Endpoint(ctx, fd.Prob.Remake(x.AddScaled(delta, dx), p, tau), fd.Alg, fd.Opts)
	if err != nil {
		return Differential{}, err
	}

	return Differential{T: t, U: u, DU: up.Sub(u).Scale(1 / delta)}, nil
}

// DifferentialBatch runs the unperturbed and perturbed batches through the
// parallel ensemble and takes the per-column quotient after both return.
// The column-order guarantee of the ensemble is what lines the two batches
// up.
func (fd *FiniteDifference) DifferentialBatch(ctx context.Context, xs, dxs []phase.State, p phase.Params, taus []float64, workers int) ([]Differential, error) {
	delta := fd.step()
	n := len(xs)

	base := make([]phase.Problem, n)
	pert := make([]phase.Problem, n)
	for i := range xs {
		base[i] = fd.Prob.Remake(xs[i], p, taus[i])
		pert[i] = fd.Prob.Remake(xs[i].AddScaled(delta, dxs[i]), p, taus[i])
	}

	baseSum, err := solver.Ensemble(ctx, base, fd.Alg, fd.Opts, solver.EndpointReduction{}, workers)
	if err != nil {
		return nil, err
	}
	pertSum, err := solver.Ensemble(ctx, pert, fd.Alg, fd.Opts, solver.EndpointReduction{}, workers)
	if err != nil {
		return nil, err
	}

	ds := make([]Differential, n)
	for i := range ds {
		u := baseSum[i].U
		ds[i] = Differential{
			T:  baseSum[i].T,
			U:  u,
			DU: pertSum[i].U.Sub(u).Scale(1 / delta),
		}
	}
	return ds, nil
}
