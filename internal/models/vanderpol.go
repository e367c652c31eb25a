package models

import "github.com/kdelattre/orbitflow/internal/phase"

// VanDerPol is the oscillator x' = y, y' = mu*(1 - x^2)*y - x. For mu > 0
// it has a unique attracting limit cycle; at mu = 1 the cycle crosses the
// positive x axis near x = 2.009 with period 6.663.
type VanDerPol struct{ mu float64 }

func NewVanDerPol() *VanDerPol { return &VanDerPol{mu: 1.0} }
func NewVanDerPolWithMu(mu float64) *VanDerPol { return &VanDerPol{mu: mu} }

func (vdp *VanDerPol) Name() string { return "vanderpol" }
func (vdp *VanDerPol) Dim() int { return 2 }

func (vdp *VanDerPol) Derive(_ float64, x phase.State, _ phase.Params) phase.State {
	return phase.State{
		x[1],
		vdp.mu*(1-x[0]*x[0])*x[1] - x[0],
	}
}

func (vdp *VanDerPol) JVP(_ float64, x phase.State, _ phase.Params, v phase.State) phase.State {
	return phase.State{
		v[1],
		(-2*vdp.mu*x[0]*x[1]-1)*v[0] + vdp.mu*(1-x[0]*x[0])*v[1],
	}
}

func (vdp *VanDerPol) DefaultState() phase.State { return phase.State{2.0, 0.0} }
