package flow

import (
	"context"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

// Ensemble integrates a batch of independent initial conditions, one
// duration per column, in parallel. Column i of the output depends only on
// column i of the inputs and matches what N single At calls would produce,
// in input order.
func (f *Flow) Ensemble(ctx context.Context, xs []phase.State, p phase.Params, taus []float64) ([]Result, error) {
	probs, err := f.batchProblems(xs, p, taus)
	if err != nil {
		return nil, &OpError{Op: OpEnsemble, Err: err}
	}
	summaries, err := solver.Ensemble(ctx, probs, f.alg, f.opts, solver.EndpointReduction{}, f.workers)
	if err != nil {
		return nil, &OpError{Op: OpEnsemble, Err: err}
	}
	results := make([]Result, len(summaries))
	for i, s := range summaries {
		results[i] = Result{T: s.T, U: s.U}
	}
	return results, nil
}

// EnsembleTrajectories is Ensemble keeping every sampled point per column.
func (f *Flow) EnsembleTrajectories(ctx context.Context, xs []phase.State, p phase.Params, taus []float64) ([]*solver.Trajectory, error) {
	probs, err := f.batchProblems(xs, p, taus)
	if err != nil {
		return nil, &OpError{Op: OpEnsembleTrajectory, Err: err}
	}
	summaries, err := solver.Ensemble(ctx, probs, f.alg, f.opts, solver.TrajectoryReduction{}, f.workers)
	if err != nil {
		return nil, &OpError{Op: OpEnsembleTrajectory, Err: err}
	}
	trs := make([]*solver.Trajectory, len(summaries))
	for i, s := range summaries {
		trs[i] = s.Traj
	}
	return trs, nil
}

// EnsembleDifferential evaluates the flow derivative for many
// (initial condition, direction) columns in one parallel batch. Used when
// building a Jacobian action, e.g. inside a multiple-shooting Newton step.
func (f *Flow) EnsembleDifferential(ctx context.Context, xs, dxs []phase.State, p phase.Params, taus []float64) ([]Differential, error) {
	if len(xs) != len(taus) || len(xs) != len(dxs) {
		return nil, &OpError{Op: OpEnsembleDifferential, Err: phase.ErrBatchShape}
	}
	for i := range xs {
		if err := f.checkPair(xs[i], dxs[i], taus[i]); err != nil {
			return nil, &OpError{Op: OpEnsembleDifferential, Err: err}
		}
	}
	ds, err := f.differ.DifferentialBatch(ctx, xs, dxs, p, taus, f.workers)
	if err != nil {
		return nil, &OpError{Op: OpEnsembleDifferential, Err: err}
	}
	return ds, nil
}

func (f *Flow) batchProblems(xs []phase.State, p phase.Params, taus []float64) ([]phase.Problem, error) {
	if len(xs) != len(taus) {
		return nil, phase.ErrBatchShape
	}
	probs := make([]phase.Problem, len(xs))
	for i := range xs {
		if err := f.checkOne(xs[i], taus[i]); err != nil {
			return nil, err
		}
		probs[i] = f.prob.Remake(xs[i], p, taus[i])
	}
	return probs, nil
}
