package models

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kdelattre/orbitflow/internal/phase"
)

func all() []Model {
	return []Model{
		NewDecay(),
		NewHarmonic(),
		NewVanDerPol(),
		NewLorenz(),
		NewDiagonal(-1, -2, 0.5),
	}
}

func TestJVPMatchesCentralDifference(t *testing.T) {
	// The analytic Jacobian action must agree with a central difference
	// of the vector field at a generic point.
	const h = 1e-6
	for _, m := range all() {
		n := m.Dim()
		x := make(phase.State, n)
		for i := range x {
			x[i] = 0.3 + 0.4*float64(i)
		}
		for j := 0; j < n; j++ {
			v := make(phase.State, n)
			v[j] = 1

			plus := x.AddScaled(h, v)
			minus := x.AddScaled(-h, v)
			fPlus := m.Derive(0, plus, nil)
			fMinus := m.Derive(0, minus, nil)

			got := m.JVP(0, x, nil, v)
			for i := 0; i < n; i++ {
				want := (fPlus[i] - fMinus[i]) / (2 * h)
				if math.Abs(got[i]-want) > 1e-4 {
					t.Errorf("%s: jvp[%d] along e%d: got %v, want %v", m.Name(), i, j, got[i], want)
				}
			}
		}
	}
}

func TestDefaultStatesMatchDimensions(t *testing.T) {
	for _, m := range all() {
		if len(m.DefaultState()) != m.Dim() {
			t.Errorf("%s: default state has %d components, dim is %d", m.Name(), len(m.DefaultState()), m.Dim())
		}
	}
}

func TestVariationalDoublesDimension(t *testing.T) {
	for _, m := range all() {
		if got := Variational(m).Dim(); got != 2*m.Dim() {
			t.Errorf("%s: augmented dim %d, want %d", m.Name(), got, 2*m.Dim())
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"decay", "harmonic", "vanderpol", "lorenz"} {
		m, err := Lookup(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("lookup %q returned model named %q", name, m.Name())
		}
	}
	if _, err := Lookup("pendulum"); err == nil {
		t.Error("unknown model should fail lookup")
	}
}

func TestHarmonicEnergy(t *testing.T) {
	h := NewHarmonicWithFreq(2)
	if e := h.Energy(phase.State{1, 0}); math.Abs(e-2) > 1e-15 {
		t.Errorf("energy: got %v, want 2", e)
	}
}

func TestLinearRejectsNonSquare(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("non-square coefficient matrix should panic")
		}
	}()
	NewLinear(mat.NewDense(2, 3, nil))
}
