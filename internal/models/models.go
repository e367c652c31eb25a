// Package models provides vector fields with analytic Jacobians, so
// callers can build exact variational problems via phase.Augment.
package models

import (
	"fmt"

	"github.com/kdelattre/orbitflow/internal/phase"
)

// Model is a vector field that also knows its Jacobian action and a
// sensible default initial condition.
type Model interface {
	phase.Field
	Name() string
	JVP(t float64, x phase.State, p phase.Params, v phase.State) phase.State
	DefaultState() phase.State
}

// Variational returns the augmented field [x | delta] for a model.
func Variational(m Model) phase.Field {
	return phase.Augment(m, m.JVP)
}

// Lookup resolves a model by CLI name.
func Lookup(name string) (Model, error) {
	switch name {
	case "decay":
		return NewDecay(), nil
	case "harmonic":
		return NewHarmonic(), nil
	case "vanderpol":
		return NewVanDerPol(), nil
	case "lorenz":
		return NewLorenz(), nil
	default:
		return nil, fmt.Errorf("models: unknown model %q", name)
	}
}
