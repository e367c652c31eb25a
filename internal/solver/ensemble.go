package solver

import (
	"context"
	"runtime"
	"sync"

	"github.com/kdelattre/orbitflow/internal/phase"
)

// Summary is the per-column residue of an ensemble trajectory after
// reduction. Traj is nil unless the reduction asked for the full
// trajectory to be kept.
type Summary struct {
	Col  int
	T    float64
	U    phase.State
	Traj *Trajectory
}

// Reduction shrinks one raw trajectory down to the summary the caller
// needs, before any cross-column collection. This bounds ensemble memory
// to the requested output size rather than the integrator's working set.
type Reduction interface {
	// NeedsTrajectory reports whether the reduction wants every sample or
	// only the endpoint. Endpoint-only reductions let the driver skip
	// trajectory retention entirely.
	NeedsTrajectory() bool
	Reduce(tr *Trajectory, col int) (Summary, bool)
}

// EndpointReduction keeps only the achieved (t, u) pair per column.
type EndpointReduction struct{}

func (EndpointReduction) NeedsTrajectory() bool { return false }

func (EndpointReduction) Reduce(tr *Trajectory, col int) (Summary, bool) {
	t, u := tr.Last()
	return Summary{Col: col, T: t, U: u}, true
}

// TrajectoryReduction keeps the whole sampled trajectory per column.
type TrajectoryReduction struct{}

func (TrajectoryReduction) NeedsTrajectory() bool { return true }

func (TrajectoryReduction) Reduce(tr *Trajectory, col int) (Summary, bool) {
	t, u := tr.Last()
	return Summary{Col: col, T: t, U: u, Traj: tr}, true
}

// Ensemble integrates a batch of independent problems with trajectory-level
// parallelism. Results are indexed by the original column order regardless
// of completion order. The first column failure is returned; trajectories
// share no mutable state so no locking happens across columns.
func Ensemble(ctx context.Context, probs []phase.Problem, alg Algorithm, opts Options, reduce Reduction, workers int) ([]Summary, error) {
	n := len(probs)
	if n == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	results := make([]Summary, n)
	errs := make([]error, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for col := range jobs {
				results[col], errs[col] = solveColumn(ctx, probs[col], alg, opts, reduce, col)
			}
		}()
	}

	for col := 0; col < n; col++ {
		jobs <- col
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func solveColumn(ctx context.Context, prob phase.Problem, alg Algorithm, opts Options, reduce Reduction, col int) (Summary, error) {
	if reduce.NeedsTrajectory() {
		tr, err := Full(ctx, prob, alg, opts)
		if err != nil {
			return Summary{}, err
		}
		summary, keep := reduce.Reduce(tr, col)
		if !keep {
			return Summary{Col: col}, nil
		}
		return summary, nil
	}

	t, u, err := Endpoint(ctx, prob, alg, opts)
	if err != nil {
		return Summary{}, err
	}
	// Hand the reduction a two-sample trajectory so endpoint and full
	// reductions share one signature.
	tr := &Trajectory{
		Times:  []float64{0, t},
		States: []phase.State{prob.X0.Clone(), u},
	}
	summary, keep := reduce.Reduce(tr, col)
	if !keep {
		return Summary{Col: col}, nil
	}
	summary.Traj = nil
	return summary, nil
}
