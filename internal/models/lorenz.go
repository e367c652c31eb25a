package models

import "github.com/kdelattre/orbitflow/internal/phase"

// Lorenz is the classic chaotic system at the standard parameters.
type Lorenz struct{ sigma, rho, beta float64 }

func NewLorenz() *Lorenz { return &Lorenz{sigma: 10, rho: 28, beta: 8.0 / 3.0} }

func (l *Lorenz) Name() string { return "lorenz" }
func (l *Lorenz) Dim() int { return 3 }

func (l *Lorenz) Derive(_ float64, x phase.State, _ phase.Params) phase.State {
	return phase.State{
		l.sigma * (x[1] - x[0]),
		x[0]*(l.rho-x[2]) - x[1],
		x[0]*x[1] - l.beta*x[2],
	}
}

func (l *Lorenz) JVP(_ float64, x phase.State, _ phase.Params, v phase.State) phase.State {
	return phase.State{
		l.sigma * (v[1] - v[0]),
		(l.rho-x[2])*v[0] - v[1] - x[0]*v[2],
		x[1]*v[0] + x[0]*v[1] - l.beta*v[2],
	}
}

func (l *Lorenz) DefaultState() phase.State { return phase.State{1.0, 1.0, 1.0} }
