package leveling

import (
	"fmt"
	"math"

	"github.com/banshee-data/tablecal/internal/fit"
	"github.com/banshee-data/tablecal/internal/grbl"
)

// Waypoint is one target of a surfacing pass.
type Waypoint struct {
	X, Y, Z float64
	// RowEnd marks the last waypoint of a row.
	RowEnd bool
}

// SurfacePath plans a serpentine pass over the X/Y envelope, one row per
// step in Y, that follows plane at depth below it. Z is clamped to the
// envelope's Z range. Both travel edges are always included.
func SurfacePath(plane fit.Plane, env grbl.Envelope, step, depth float64) ([]Waypoint, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("surface step must be positive, got %v", step)
	}
	if depth < 0 || math.IsNaN(depth) {
		return nil, fmt.Errorf("surface depth must be non-negative, got %v", depth)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}

	xs := gridValues(env.X.Far, env.X.Home, step)
	ys := gridValues(env.Y.Far, env.Y.Home, step)

	path := make([]Waypoint, 0, len(xs)*len(ys))
	for row, y := range ys {
		for i := range xs {
			x := xs[i]
			if row%2 == 1 {
				x = xs[len(xs)-1-i]
			}
			z := plane.Z(x, y) - depth
			z = math.Max(math.Min(z, env.Z.Home), env.Z.Far)
			path = append(path, Waypoint{X: x, Y: y, Z: z, RowEnd: i == len(xs)-1})
		}
	}
	return path, nil
}

// gridValues returns a, a+step, ... up to and including b, in whichever
// direction b lies.
func gridValues(a, b, step float64) []float64 {
	lo, hi := math.Min(a, b), math.Max(a, b)
	n := int(math.Floor((hi-lo)/step + 1e-9))
	vals := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		vals = append(vals, lo+float64(i)*step)
	}
	if hi-vals[len(vals)-1] > 1e-9 {
		vals = append(vals, hi)
	}
	return vals
}
