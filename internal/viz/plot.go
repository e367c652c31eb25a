// Package viz renders trajectories and multiplier spectra for the CLI.
package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/kdelattre/orbitflow/internal/solver"
)

// PlotComponent renders one state component of a trajectory.
func PlotComponent(tr *solver.Trajectory, idx int, caption string) string {
	data := make([]float64, len(tr.States))
	for i, x := range tr.States {
		data[i] = x[idx]
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// PlotPhase renders an x-y phase portrait by sampling the trajectory onto
// a character grid.
func PlotPhase(tr *solver.Trajectory, xIdx, yIdx, width, height int) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range tr.States {
		minX = math.Min(minX, s[xIdx])
		maxX = math.Max(maxX, s[xIdx])
		minY = math.Min(minY, s[yIdx])
		maxY = math.Max(maxY, s[yIdx])
	}
	if maxX == minX || maxY == minY {
		return "(degenerate phase portrait)"
	}

	grid := make([][]byte, height)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(" ", width))
	}
	for _, s := range tr.States {
		c := int((s[xIdx] - minX) / (maxX - minX) * float64(width-1))
		r := int((maxY - s[yIdx]) / (maxY - minY) * float64(height-1))
		grid[r][c] = '*'
	}

	var b strings.Builder
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "x: [%.3g, %.3g]  y: [%.3g, %.3g]\n", minX, maxX, minY, maxY)
	return b.String()
}

// FormatMultipliers renders Floquet multipliers with their moduli, styled
// by stability.
func FormatMultipliers(vals []complex128) string {
	var b strings.Builder
	for i, v := range vals {
		modulus := math.Hypot(real(v), imag(v))
		line := fmt.Sprintf("mu[%d] = %+.6f%+.6fi  |mu| = %.6f", i, real(v), imag(v), modulus)
		switch {
		case modulus > 1+1e-6:
			line = UnstableStyle.Render(line)
		case modulus < 1-1e-6:
			line = StableStyle.Render(line)
		default:
			line = WarnStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
