// Package flow exposes the flow map of a dynamical system and its
// directional derivative behind one uniform contract. Shooting solvers,
// Floquet computations, and continuation all treat a Flow as a black box:
// the endpoint, full-trajectory, time-stamped, and differential queries are
// mutually consistent, and ensemble queries return results in column order
// no matter how the underlying trajectories are scheduled.
package flow

import (
	"context"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

// Result is an achieved (final time, final state) pair. For runs that were
// not stopped early, T equals the requested duration exactly.
type Result struct {
	T float64
	U phase.State
}

// Differential carries the flow endpoint together with the directional
// derivative of the flow map applied to one direction vector. U always
// equals what the plain endpoint query would produce for the same inputs.
type Differential struct {
	T  float64
	U  phase.State
	DU phase.State
}

// Flow is the composite downstream code holds. It binds one problem
// template, one algorithm, and one differentiation strategy at
// construction and is immutable afterwards; sharing a Flow across
// concurrent readers is safe. The differential operation always runs on
// its own serial binding, never on the ensemble worker pool.
type Flow struct {
	prob    phase.Problem
	alg     solver.Algorithm
	opts    solver.Options
	differ  Differentiator
	workers int
	fdStep  float64
}

// Option customizes Flow construction.
type Option func(*Flow)

// WithWorkers sets the goroutine count for ensemble operations. Zero or
// negative means one worker per CPU.
func WithWorkers(n int) Option {
	return func(f *Flow) { f.workers = n }
}

// WithFDStep overrides the finite-difference step. The default is an
// absolute 1e-9, suited to unit-scale states; callers with very large or
// very small states should supply their own. Passing it to NewVariational
// panics: an exact derivative has no step to tune, and dropping the value
// silently would hide a caller bug.
func WithFDStep(delta float64) Option {
	return func(f *Flow) { f.fdStep = delta }
}

// New builds a Flow whose derivative is approximated by finite
// differences. The approximation carries a step-size-dependent bias: too
// large a step picks up nonlinearity, too small a step amplifies
// floating-point cancellation.
func New(prob phase.Problem, alg solver.Algorithm, opts solver.Options, fns ...Option) *Flow {
	f := &Flow{
		prob: prob,
		alg:  alg,
		opts: opts,
	}
	for _, fn := range fns {
		fn(f)
	}
	delta := f.fdStep
	if delta <= 0 {
		delta = DefaultFDStep
	}
	f.differ = &FiniteDifference{Prob: prob, Alg: alg, Opts: opts, Delta: delta}
	return f
}

// NewVariational builds a Flow whose derivative is exact: vprob must
// already encode the variational equation on the doubled state [x | delta]
// (see phase.Augment). The variational binding may use a different
// algorithm and tolerances than the flow itself.
func NewVariational(prob phase.Problem, alg solver.Algorithm, opts solver.Options, vprob phase.Problem, valg solver.Algorithm, vopts solver.Options, fns ...Option) *Flow {
	f := &Flow{
		prob: prob,
		alg:  alg,
		opts: opts,
	}
	for _, fn := range fns {
		fn(f)
	}
	if f.fdStep != 0 {
		panic("flow: WithFDStep applies only to flows built by New")
	}
	f.differ = &ExactVariational{Prob: vprob, Alg: valg, Opts: vopts}
	return f
}

// Dim returns the phase-space dimension.
func (f *Flow) Dim() int { return f.prob.Field.Dim() }

// Params returns the bound parameter set.
func (f *Flow) Params() phase.Params { return f.prob.P }

// At integrates from x over [0, tau] and returns the final state. A nil p
// keeps the parameter set bound at construction.
func (f *Flow) At(ctx context.Context, x phase.State, p phase.Params, tau float64) (phase.State, error) {
	if err := f.checkOne(x, tau); err != nil {
		return nil, &OpError{Op: OpEndpoint, Err: err}
	}
	_, u, err := solver.Endpoint(ctx, f.prob.Remake(x, p, tau), f.alg, f.opts)
	if err != nil {
		return nil, &OpError{Op: OpEndpoint, Err: err}
	}
	return u, nil
}

// Stamped is At with the achieved final time. T may differ from tau only
// when the integrator stops early on an externally triggered event; this
// layer never stops early on its own.
func (f *Flow) Stamped(ctx context.Context, x phase.State, p phase.Params, tau float64) (Result, error) {
	if err := f.checkOne(x, tau); err != nil {
		return Result{}, &OpError{Op: OpStamped, Err: err}
	}
	t, u, err := solver.Endpoint(ctx, f.prob.Remake(x, p, tau), f.alg, f.opts)
	if err != nil {
		return Result{}, &OpError{Op: OpStamped, Err: err}
	}
	return Result{T: t, U: u}, nil
}

// Trajectory integrates from x over [0, tau] and returns every sample the
// integrator emitted. No resampling is imposed.
func (f *Flow) Trajectory(ctx context.Context, x phase.State, p phase.Params, tau float64) (*solver.Trajectory, error) {
	if err := f.checkOne(x, tau); err != nil {
		return nil, &OpError{Op: OpTrajectory, Err: err}
	}
	tr, err := solver.Full(ctx, f.prob.Remake(x, p, tau), f.alg, f.opts)
	if err != nil {
		return nil, &OpError{Op: OpTrajectory, Err: err}
	}
	return tr, nil
}

// Differential computes the flow and its directional derivative along dx,
// on the serial binding. Consumers that need deterministic, thread-confined
// evaluation (Floquet multipliers) rely on this path staying off the
// ensemble pool.
func (f *Flow) Differential(ctx context.Context, x, dx phase.State, p phase.Params, tau float64) (Differential, error) {
	if err := f.checkPair(x, dx, tau); err != nil {
		return Differential{}, &OpError{Op: OpDifferential, Err: err}
	}
	d, err := f.differ.Differential(ctx, x, dx, p, tau)
	if err != nil {
		return Differential{}, &OpError{Op: OpDifferential, Err: err}
	}
	return d, nil
}

func (f *Flow) checkOne(x phase.State, tau float64) error {
	if len(x) != f.Dim() {
		return phase.ErrDimensionMismatch
	}
	if tau < 0 {
		return phase.ErrNegativeDuration
	}
	return nil
}

func (f *Flow) checkPair(x, dx phase.State, tau float64) error {
	if len(x) != f.Dim() || len(dx) != len(x) {
		return phase.ErrDimensionMismatch
	}
	if tau < 0 {
		return phase.ErrNegativeDuration
	}
	return nil
}
