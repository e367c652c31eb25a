package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

func sampleTrajectory() *solver.Trajectory {
	return &solver.Trajectory{
		Times: []float64{0, 0.5, 1},
		States: []phase.State{
			{1, 0},
			{0.8775825618903728, -0.479425538604203},
			{0.5403023058681398, -0.8414709848078965},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	tr := sampleTrajectory()
	runID, err := store.Save("harmonic", "rk4", 1e-3, 1, tr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(runID, "harmonic_") {
		t.Errorf("run id %q should carry the model name", runID)
	}

	meta, loaded, err := store.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Model != "harmonic" || meta.Algorithm != "rk4" {
		t.Errorf("metadata: got %q/%q", meta.Model, meta.Algorithm)
	}
	if meta.Samples != len(tr.Times) {
		t.Errorf("sample count: got %d, want %d", meta.Samples, len(tr.Times))
	}

	if len(loaded.Times) != len(tr.Times) {
		t.Fatalf("loaded %d samples, want %d", len(loaded.Times), len(tr.Times))
	}
	for i := range tr.Times {
		if loaded.Times[i] != tr.Times[i] {
			t.Errorf("time %d: got %v, want %v", i, loaded.Times[i], tr.Times[i])
		}
		for j := range tr.States[i] {
			if loaded.States[i][j] != tr.States[i][j] {
				t.Errorf("state %d[%d]: got %v, want %v", i, j, loaded.States[i][j], tr.States[i][j])
			}
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	tr := sampleTrajectory()
	first, err := store.Save("decay", "rk4", 1e-3, 1, tr)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := store.Save("lorenz", "dopri5", 1e-3, 1, tr)
	if err != nil {
		t.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count: got %d, want 2", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("order: got [%s %s], want newest first", runs[0].ID, runs[1].ID)
	}
}

func TestListSkipsStrayEntries(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save("harmonic", "rk4", 1e-3, 1, sampleTrajectory()); err != nil {
		t.Fatal(err)
	}

	// A directory without metadata must not break listing.
	if err := New(dir + "/orphan").Init(); err != nil {
		t.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("run count: got %d, want 1", len(runs))
	}
}

func TestLoadUnknownRun(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Load("harmonic_0"); err == nil {
		t.Error("loading an unknown run should fail")
	}
}
