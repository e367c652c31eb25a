package flow

import (
	"context"
	"math"
	"testing"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

func TestExactVariationalDecay(t *testing.T) {
	// Linear system: the tangent dynamics equal the state dynamics, so
	// du = exp(-1) for dx = 1.
	fl := decayVariationalFlow()

	d, err := fl.Differential(context.Background(), phase.State{1}, phase.State{1}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}

	want := math.Exp(-1)
	if math.Abs(d.U[0]-want) > 1e-9 {
		t.Errorf("endpoint: got %.10f, want %.10f", d.U[0], want)
	}
	if math.Abs(d.DU[0]-want) > 1e-9 {
		t.Errorf("derivative: got %.10f, want %.10f", d.DU[0], want)
	}
	if d.T != 1 {
		t.Errorf("achieved time: got %v, want 1", d.T)
	}
}

func TestDifferentialConsistency(t *testing.T) {
	// The endpoint reported by the differential query must equal the
	// plain flow, for both strategies.
	for name, fl := range map[string]*Flow{
		"exact":            decayVariationalFlow(),
		"finitedifference": decayFlow(),
	} {
		u, err := fl.At(context.Background(), phase.State{1}, nil, 1)
		if err != nil {
			t.Fatal(err)
		}
		d, err := fl.Differential(context.Background(), phase.State{1}, phase.State{1}, nil, 1)
		if err != nil {
			t.Fatal(err)
		}
		if u[0] != d.U[0] {
			t.Errorf("%s: differential endpoint %v != flow endpoint %v", name, d.U[0], u[0])
		}
	}
}

func TestFiniteDifferenceAgreesWithExact(t *testing.T) {
	exactFl := decayVariationalFlow()
	prob := phase.NewProblem(decayField(), nil, phase.State{1}, 1)
	fdFl := New(prob, solver.NewRK4(), fineOpts(), WithFDStep(1e-6))

	exact, err := exactFl.Differential(context.Background(), phase.State{1}, phase.State{1}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	approx, err := fdFl.Differential(context.Background(), phase.State{1}, phase.State{1}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Forward differences are first order: the error is O(delta).
	if diff := math.Abs(exact.DU[0] - approx.DU[0]); diff > 1e-5 {
		t.Errorf("fd derivative off by %v", diff)
	}
}

func TestFiniteDifferenceConvergence(t *testing.T) {
	// On a linear field the quotient is exact to rounding for any delta,
	// so the O(delta) bias is only visible on a nonlinear one. Use
	// x' = -x^3 and check the error shrinks monotonically over a range of
	// deltas well above the cancellation floor.
	cubic := phase.NewField(1, func(_ float64, x phase.State, _ phase.Params) phase.State {
		return phase.State{-x[0] * x[0] * x[0]}
	})
	cubicJVP := func(_ float64, x phase.State, _ phase.Params, v phase.State) phase.State {
		return phase.State{-3 * x[0] * x[0] * v[0]}
	}

	prob := phase.NewProblem(cubic, nil, phase.State{1}, 1)
	vprob := phase.NewProblem(phase.Augment(cubic, cubicJVP), nil, phase.State{1, 0}, 1)
	exactFl := NewVariational(prob, solver.NewRK4(), fineOpts(), vprob, solver.NewRK4(), fineOpts())

	exact, err := exactFl.Differential(context.Background(), phase.State{1}, phase.State{1}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}

	deltas := []float64{1e-2, 1e-3, 1e-4, 1e-5}
	prevErr := math.Inf(1)
	for _, delta := range deltas {
		fl := New(prob, solver.NewRK4(), fineOpts(), WithFDStep(delta))
		d, err := fl.Differential(context.Background(), phase.State{1}, phase.State{1}, nil, 1)
		if err != nil {
			t.Fatal(err)
		}
		fdErr := math.Abs(d.DU[0] - exact.DU[0])
		if fdErr >= prevErr {
			t.Errorf("delta=%g: error %v did not shrink from %v", delta, fdErr, prevErr)
		}
		prevErr = fdErr
	}
}

func TestEnsembleDifferentialMatchesSerial(t *testing.T) {
	for name, fl := range map[string]*Flow{
		"exact":            decayVariationalFlow(),
		"finitedifference": decayFlow(),
	} {
		ctx := context.Background()
		const n = 4
		xs := make([]phase.State, n)
		dxs := make([]phase.State, n)
		taus := make([]float64, n)
		for i := range xs {
			xs[i] = phase.State{float64(i + 1)}
			dxs[i] = phase.State{1}
			taus[i] = 1
		}

		batch, err := fl.EnsembleDifferential(ctx, xs, dxs, nil, taus)
		if err != nil {
			t.Fatal(err)
		}
		for i := range xs {
			serial, err := fl.Differential(ctx, xs[i], dxs[i], nil, taus[i])
			if err != nil {
				t.Fatal(err)
			}
			if batch[i].U[0] != serial.U[0] {
				t.Errorf("%s column %d: batch endpoint %v != serial %v", name, i, batch[i].U[0], serial.U[0])
			}
			if batch[i].DU[0] != serial.DU[0] {
				t.Errorf("%s column %d: batch derivative %v != serial %v", name, i, batch[i].DU[0], serial.DU[0])
			}
		}
	}
}

func TestVariationalHarmonic(t *testing.T) {
	// Rotation by tau: the derivative of the flow map is the rotation
	// matrix applied to the direction.
	jvp := func(_ float64, _ phase.State, _ phase.Params, v phase.State) phase.State {
		return phase.State{v[1], -v[0]}
	}
	prob := phase.NewProblem(harmonicField(), nil, phase.State{1, 0}, 1)
	vprob := phase.NewProblem(phase.Augment(harmonicField(), jvp), nil, make(phase.State, 4), 1)
	fl := NewVariational(prob, solver.NewRK4(), fineOpts(), vprob, solver.NewRK4(), fineOpts())

	tau := math.Pi / 3
	d, err := fl.Differential(context.Background(), phase.State{1, 0}, phase.State{1, 0}, nil, tau)
	if err != nil {
		t.Fatal(err)
	}

	// d(flow)/dx applied to e1 is (cos tau, -sin tau).
	if math.Abs(d.DU[0]-math.Cos(tau)) > 1e-8 || math.Abs(d.DU[1]+math.Sin(tau)) > 1e-8 {
		t.Errorf("tangent: got %v, want [%v %v]", d.DU, math.Cos(tau), -math.Sin(tau))
	}
}

func TestDefaultFDStepApplied(t *testing.T) {
	fl := decayFlow()
	fd, ok := fl.differ.(*FiniteDifference)
	if !ok {
		t.Fatal("flow built by New should use finite differences")
	}
	if fd.step() != DefaultFDStep {
		t.Errorf("default step: got %v, want %v", fd.step(), DefaultFDStep)
	}

	custom := New(phase.NewProblem(decayField(), nil, phase.State{1}, 1), solver.NewRK4(), fineOpts(), WithFDStep(1e-6))
	if got := custom.differ.(*FiniteDifference).step(); got != 1e-6 {
		t.Errorf("override step: got %v, want 1e-6", got)
	}
}

func TestFDStepRejectedOnVariationalFlows(t *testing.T) {
	// An exact derivative has no difference step; passing one is a caller
	// bug and must not be dropped silently.
	defer func() {
		if recover() == nil {
			t.Error("WithFDStep on a variational flow should panic")
		}
	}()
	prob := phase.NewProblem(decayField(), nil, phase.State{1}, 1)
	vprob := phase.NewProblem(phase.Augment(decayField(), decayJVP), nil, phase.State{1, 0}, 1)
	NewVariational(prob, solver.NewRK4(), fineOpts(), vprob, solver.NewRK4(), fineOpts(), WithFDStep(1e-6))
}
