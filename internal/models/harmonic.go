package models

import "github.com/kdelattre/orbitflow/internal/phase"

// Harmonic is the oscillator x'' = -omega^2 * x written first order.
type Harmonic struct{ omega float64 }

func NewHarmonic() *Harmonic { return &Harmonic{omega: 1.0} }
func NewHarmonicWithFreq(omega float64) *Harmonic { return &Harmonic{omega: omega} }

func (h *Harmonic) Name() string { return "harmonic" }
func (h *Harmonic) Dim() int { return 2 }

func (h *Harmonic) Derive(_ float64, x phase.State, _ phase.Params) phase.State {
	return phase.State{x[1], -h.omega * h.omega * x[0]}
}

func (h *Harmonic) JVP(_ float64, _ phase.State, _ phase.Params, v phase.State) phase.State {
	return phase.State{v[1], -h.omega * h.omega * v[0]}
}

func (h *Harmonic) DefaultState() phase.State { return phase.State{1.0, 0.0} }

// Energy is conserved along exact trajectories; tests use it to validate
// integrator accuracy.
func (h *Harmonic) Energy(x phase.State) float64 {
	return 0.5 * (x[1]*x[1] + h.omega*h.omega*x[0]*x[0])
}
