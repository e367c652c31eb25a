package solver

import (
	"context"

	"github.com/kdelattre/orbitflow/internal/phase"
)

// Trajectory is a fully sampled solution, ordered by increasing time, with
// the first entry at t=0 equal to the initial condition.
type Trajectory struct {
	Times  []float64
	States []phase.State
}

// Last returns the achieved final time and state.
func (tr *Trajectory) Last() (float64, phase.State) {
	last := len(tr.Times) - 1
	return tr.Times[last], tr.States[last]
}

// Endpoint integrates the problem over [0, TFinal] and returns only the
// final time and state. No intermediate samples are retained.
func Endpoint(ctx context.Context, prob phase.Problem, alg Algorithm, opts Options) (float64, phase.State, error) {
	return integrate(ctx, prob, alg, opts, nil)
}

// Full integrates the problem and retains every accepted sample.
func Full(ctx context.Context, prob phase.Problem, alg Algorithm, opts Options) (*Trajectory, error) {
	tr := &Trajectory{
		Times:  make([]float64, 0, 64),
		States: make([]phase.State, 0, 64),
	}
	record := func(t float64, x phase.State) {
		tr.Times = append(tr.Times, t)
		tr.States = append(tr.States, x.Clone())
	}
	_, _, err := integrate(ctx, prob, alg, opts, record)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// integrate is the single stepping loop behind every driver. The record
// callback, when non-nil, receives each accepted sample including the
// initial condition. The returned state is owned by the caller.
func integrate(ctx context.Context, prob phase.Problem, alg Algorithm, opts Options, record func(t float64, x phase.State)) (float64, phase.State, error) {
	if err := prob.Validate(); err != nil {
		return 0, nil, err
	}
	if err := opts.validate(); err != nil {
		return 0, nil, err
	}

	adaptive, isAdaptive := alg.(AdaptiveAlgorithm)

	x := prob.X0.Clone()
	t := 0.0
	if record != nil {
		record(t, x)
	}

	dt := opts.Dt
	for step := 0; t < prob.TFinal; step++ {
		select {
		case <-ctx.Done():
			return t, nil, &StepError{Step: step, T: t, Err: ctx.Err()}
		default:
		}

		if step >= opts.MaxSteps {
			return t, nil, &StepError{Step: step, T: t, Err: ErrMaxSteps}
		}

		h := dt
		clamped := false
		if t+h >= prob.TFinal {
			h = prob.TFinal - t
			clamped = true
		}

		// The clamped step stays under error control too: a rejection
		// shrinks the step and later iterations cover the rest of the
		// interval.
		var newX phase.State
		landed := clamped
		if isAdaptive {
			var hUsed float64
			var stepErr error
			newX, hUsed, dt, stepErr = adaptive.StepAdaptive(prob.Field, prob.P, x, t, h, opts)
			if stepErr != nil {
				return t, nil, &StepError{Step: step, T: t, Err: stepErr}
			}
			landed = clamped && hUsed == h
			h = hUsed
		} else {
			newX = alg.Step(prob.Field, prob.P, x, t, h)
		}

		if !newX.IsValid() {
			return t, nil, &StepError{Step: step, T: t, Err: ErrUnstable}
		}

		x = newX
		if landed {
			// Land exactly on the requested horizon.
			t = prob.TFinal
		} else {
			t += h
		}
		if record != nil {
			record(t, x)
		}
	}

	return t, x, nil
}
