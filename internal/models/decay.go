package models

import "github.com/kdelattre/orbitflow/internal/phase"

// Decay is the scalar system x' = -lambda*x.
type Decay struct{ lambda float64 }

func NewDecay() *Decay { return &Decay{lambda: 1.0} }
func NewDecayWithRate(lambda float64) *Decay { return &Decay{lambda: lambda} }

func (d *Decay) Name() string { return "decay" }
func (d *Decay) Dim() int { return 1 }

func (d *Decay) Derive(_ float64, x phase.State, _ phase.Params) phase.State {
	return phase.State{-d.lambda * x[0]}
}

func (d *Decay) JVP(_ float64, _ phase.State, _ phase.Params, v phase.State) phase.State {
	return phase.State{-d.lambda * v[0]}
}

func (d *Decay) DefaultState() phase.State { return phase.State{1.0} }
