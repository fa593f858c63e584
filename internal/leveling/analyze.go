package leveling

import (
	"fmt"
	"math"

	"github.com/banshee-data/tablecal/internal/fit"
)

// ExtremeTolerance is how close a sample must be to a travel edge to count
// as a measurement at that edge.
const ExtremeTolerance = 0.0001

// MountHeight is a mount's height on the re-referenced plane, and how much
// that mount must be raised to meet the highest corner.
type MountHeight struct {
	Mount
	Z     float64
	Raise float64
}

// Report is the outcome of a leveling analysis.
type Report struct {
	Table    Table
	Measured fit.Plane
	Extent   fit.Extent

	// Thickness differences across a 100 mm part, in mm.
	DiffX100    float64
	DiffY100    float64
	DiffDiag100 float64

	// Relative is Measured shifted so the highest corner mount reads zero.
	Relative fit.Plane
	Mounts   []MountHeight

	Warnings []string
}

// Mount returns the named mount height.
func (r Report) Mount(name string) (MountHeight, bool) {
	for _, m := range r.Mounts {
		if m.Name == name {
			return m, true
		}
	}
	return MountHeight{}, false
}

// Analyze evaluates plane at the table's mounting holes. Mounts can only be
// raised, so everything is referenced to the highest corner mount.
func Analyze(table Table, plane fit.Plane, samples []fit.Sample) Report {
	r := Report{
		Table:    table,
		Measured: plane,
		Extent:   fit.Bounds(fit.Heights(samples)),
	}
	r.Warnings = missingExtremes(table, r.Extent)

	mounts := table.Mounts()
	z := make(map[string]float64, len(mounts))
	for _, m := range mounts {
		z[m.Name] = plane.Z(m.X, m.Y)
	}
	zfr, zbr, zbl, zfl := z[FrontRight], z[BackRight], z[BackLeft], z[FrontLeft]

	r.DiffX100 = 100 * math.Max(math.Abs(zfl-zfr), math.Abs(zbl-zbr)) / math.Abs(table.Width())
	r.DiffY100 = 100 * math.Max(math.Abs(zfl-zbl), math.Abs(zfr-zbr)) / math.Abs(table.Depth())
	r.DiffDiag100 = math.Hypot(r.DiffX100, r.DiffY100)

	highest := math.Max(math.Max(zbl, zbr), math.Max(zfr, zfl))
	r.Relative = plane.Shift(-highest)

	r.Mounts = make([]MountHeight, len(mounts))
	for i, m := range mounts {
		rel := r.Relative.Z(m.X, m.Y)
		r.Mounts[i] = MountHeight{Mount: m, Z: rel, Raise: math.Abs(rel)}
	}
	return r
}

func missingExtremes(t Table, e fit.Extent) []string {
	var warnings []string
	check := func(edge string, want, got float64) {
		if math.Abs(want-got) > ExtremeTolerance {
			warnings = append(warnings, fmt.Sprintf("no measurement taken at %s extreme (%.3f)", edge, want))
		}
	}
	check("left", t.Left, e.MinX)
	check("right", t.Right, e.MaxX)
	check("back", t.Back, e.MaxY)
	check("front", t.Front, e.MinY)
	return warnings
}
