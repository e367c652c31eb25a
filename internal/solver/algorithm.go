package solver

import "github.com/kdelattre/orbitflow/internal/phase"

// Algorithm advances a state by one step of size dt. Implementations hold
// no per-trajectory state so a single value is safe to share across the
// ensemble workers.
type Algorithm interface {
	Name() string
	Step(f phase.Field, p phase.Params, x phase.State, t, dt float64) phase.State
}

// AdaptiveAlgorithm additionally controls its own step size against an
// error tolerance. StepAdaptive returns the accepted state, the size of
// the step it actually took, the proposed size for the next step, and an
// error if no acceptable step >= opts.MinDt exists.
type AdaptiveAlgorithm interface {
	Algorithm
	StepAdaptive(f phase.Field, p phase.Params, x phase.State, t, dt float64, opts Options) (newX phase.State, hUsed, dtNext float64, err error)
}

// RK4 is the classic fixed-step fourth-order Runge-Kutta scheme.
type RK4 struct{}

func NewRK4() RK4 { return RK4{} }

func (RK4) Name() string { return "rk4" }

func (RK4) Step(f phase.Field, p phase.Params, x phase.State, t, dt float64) phase.State {
	n := len(x)

	k1 := f.Derive(t, x, p)

	scratch := make(phase.State, n)
	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := f.Derive(t+dt*0.5, scratch, p)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := f.Derive(t+dt*0.5, scratch, p)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4 := f.Derive(t+dt, scratch, p)

	result := make(phase.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}

	return result
}
