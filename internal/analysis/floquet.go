// Package analysis builds periodic-orbit diagnostics on top of the flow
// layer: monodromy matrices, Floquet multipliers, and a single-shooting
// Newton solver.
package analysis

import (
	"context"
	"errors"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/kdelattre/orbitflow/internal/flow"
	"github.com/kdelattre/orbitflow/internal/phase"
)

// ErrEigenFailed indicates the eigendecomposition of the monodromy matrix
// did not converge.
var ErrEigenFailed = errors.New("analysis: eigendecomposition failed")

// Monodromy propagates each canonical basis direction over one period and
// assembles the derivative of the flow map as a matrix. It deliberately
// uses the flow's serial differential binding: Floquet extraction needs a
// deterministic, thread-confined pass, not the ensemble pool.
func Monodromy(ctx context.Context, fl *flow.Flow, x phase.State, p phase.Params, period float64) (*mat.Dense, error) {
	n := len(x)
	m := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		dir := make(phase.State, n)
		dir[j] = 1
		d, err := fl.Differential(ctx, x, dir, p, period)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			m.Set(i, j, d.DU[i])
		}
	}
	return m, nil
}

// FloquetMultipliers returns the eigenvalues of a monodromy matrix,
// ordered by decreasing modulus. A multiplier outside the unit circle
// marks an unstable periodic orbit; autonomous systems always carry the
// trivial multiplier 1 along the phase direction.
func FloquetMultipliers(m *mat.Dense) ([]complex128, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return nil, ErrEigenFailed
	}
	vals := eig.Values(nil)
	sort.Slice(vals, func(i, j int) bool {
		return cmplx.Abs(vals[i]) > cmplx.Abs(vals[j])
	})
	return vals, nil
}
