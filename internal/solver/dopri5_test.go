package solver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kdelattre/orbitflow/internal/phase"
)

func TestDopri5AdaptsStepSize(t *testing.T) {
	prob := phase.NewProblem(harmonic(), nil, phase.State{1, 0}, 20)
	loose := DefaultOptions()
	loose.AbsTol, loose.RelTol = 1e-4, 1e-4
	tight := DefaultOptions()
	tight.AbsTol, tight.RelTol = 1e-10, 1e-10

	trLoose, err := Full(context.Background(), prob, NewDopri5(), loose)
	if err != nil {
		t.Fatal(err)
	}
	trTight, err := Full(context.Background(), prob, NewDopri5(), tight)
	if err != nil {
		t.Fatal(err)
	}

	if len(trTight.Times) <= len(trLoose.Times) {
		t.Errorf("tighter tolerance should take more steps: %d vs %d", len(trTight.Times), len(trLoose.Times))
	}

	_, u := trTight.Last()
	if math.Abs(u[0]-math.Cos(20)) > 1e-6 {
		t.Errorf("endpoint: got %.10f, want %.10f", u[0], math.Cos(20))
	}
}

func TestDopri5ConservesEnergy(t *testing.T) {
	prob := phase.NewProblem(harmonic(), nil, phase.State{1, 0}, 100)
	opts := DefaultOptions()
	opts.AbsTol, opts.RelTol = 1e-10, 1e-10

	_, u, err := Endpoint(context.Background(), prob, NewDopri5(), opts)
	if err != nil {
		t.Fatal(err)
	}

	energy := 0.5 * (u[0]*u[0] + u[1]*u[1])
	if math.Abs(energy-0.5) > 1e-5 {
		t.Errorf("energy drifted: got %.10f, want 0.5", energy)
	}
}

func TestDopri5SurfacesNaNField(t *testing.T) {
	// A NaN error estimate fails both the accept and the reject
	// comparison; the controller must bail out with ErrUnstable instead
	// of spinning on a step size it can never fix.
	nan := phase.NewField(1, func(_ float64, _ phase.State, _ phase.Params) phase.State {
		return phase.State{math.NaN()}
	})
	prob := phase.NewProblem(nan, nil, phase.State{1}, 1)

	done := make(chan error, 1)
	go func() {
		_, _, err := Endpoint(context.Background(), prob, NewDopri5(), DefaultOptions())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrUnstable) {
			t.Errorf("expected ErrUnstable, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("integration never returned on a NaN-producing field")
	}
}

func TestDopri5ControlsClampedFinalStep(t *testing.T) {
	// An initial step larger than the whole horizon clamps to it; the
	// clamped step must still pass through the accept/reject loop rather
	// than being taken uncontrolled.
	prob := phase.NewProblem(harmonic(), nil, phase.State{1, 0}, 5)
	opts := DefaultOptions()
	opts.Dt = 10
	opts.AbsTol, opts.RelTol = 1e-8, 1e-8

	tFinal, u, err := Endpoint(context.Background(), prob, NewDopri5(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if tFinal != 5 {
		t.Errorf("achieved time: got %v, want exactly 5", tFinal)
	}
	if math.Abs(u[0]-math.Cos(5)) > 1e-6 {
		t.Errorf("endpoint: got %.10f, want %.10f", u[0], math.Cos(5))
	}
}

func TestDopri5FixedStepFallback(t *testing.T) {
	// Step satisfies the plain Algorithm contract without the controller.
	f := harmonic()
	x := phase.State{1, 0}
	var alg Algorithm = NewDopri5()

	dt := 0.01
	for i := 0; i < 100; i++ {
		x = alg.Step(f, nil, x, float64(i)*dt, dt)
	}

	if math.Abs(x[0]-math.Cos(1)) > 1e-8 {
		t.Errorf("position: got %.10f, want %.10f", x[0], math.Cos(1))
	}
}
