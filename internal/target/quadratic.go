// Package target holds the hidden demonstration function the CLI tries to
// rediscover, together with its sampling helpers.
package target

import (
	"fmt"
	"math/rand"

	"symreg/internal/expr"
	"symreg/internal/fitness"
)

const (
	DefaultSamples = 200
	DefaultLow     = 0.0
	DefaultHigh    = 40.0
)

// Variables are the parameter names the hidden function reads.
var Variables = []string{"x", "y"}

// Quadratic is the hidden function x^2 + 2y + 3x + 5.
func Quadratic(x, y float64) float64 {
	return x*x + 2*y + 3*x + 5
}

// Sample draws n probes with x and y uniform in [lo, hi).
func Sample(rng *rand.Rand, n int, lo, hi float64) (fitness.Dataset, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be > 0, got %d", n)
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("sample range must satisfy lo < hi, got [%v, %v)", lo, hi)
	}

	ds := make(fitness.Dataset, 0, n)
	for i := 0; i < n; i++ {
		x := lo + rng.Float64()*(hi-lo)
		y := lo + rng.Float64()*(hi-lo)
		ds = append(ds, fitness.Probe{
			Context:  expr.Context{"x": x, "y": y},
			Expected: Quadratic(x, y),
		})
	}
	return ds, nil
}

// GridPoint is one row of the compare table.
type GridPoint struct {
	X, Y float64
}

// Grid enumerates (x, y) pairs over [lo, hi] in both axes with the given step.
func Grid(lo, hi, step float64) ([]GridPoint, error) {
	if step <= 0 {
		return nil, fmt.Errorf("grid step must be > 0, got %v", step)
	}
	if hi < lo {
		return nil, fmt.Errorf("grid range must satisfy lo <= hi, got [%v, %v]", lo, hi)
	}
	steps := int((hi-lo)/step + 1e-9)
	points := make([]GridPoint, 0, (steps+1)*(steps+1))
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			points = append(points, GridPoint{X: lo + float64(i)*step, Y: lo + float64(j)*step})
		}
	}
	return points, nil
}
