// Package leveling turns a fitted surface plane into shim amounts for the
// table's mounting points, and renders the probe data for inspection.
package leveling

import (
	"github.com/banshee-data/tablecal/internal/grbl"
)

// Table is the machine table in work coordinates: the corners the tool can
// reach and where the mounting holes sit relative to them.
type Table struct {
	Left, Right float64 // X of the leftmost and rightmost tool positions
	Back, Front float64 // Y of the backmost and frontmost tool positions

	// Mounting hole offsets from the nearest travel edge.
	RightMountX, LeftMountX float64
	BackMountY, FrontMountY float64
}

// DefaultTable returns the geometry of a 420 x 370 mm table homed to its
// back-right corner.
func DefaultTable() Table {
	return Table{
		Left: -420, Right: 0,
		Back: 0, Front: -370,
		RightMountX: 112, LeftMountX: -109,
		BackMountY: 194.5, FrontMountY: 5,
	}
}

// TableFromEnvelope derives the travel corners from a driver envelope and
// keeps the default mount offsets.
func TableFromEnvelope(env grbl.Envelope) Table {
	t := DefaultTable()
	t.Left, t.Right = min(env.X.Home, env.X.Far), max(env.X.Home, env.X.Far)
	t.Front, t.Back = min(env.Y.Home, env.Y.Far), max(env.Y.Home, env.Y.Far)
	return t
}

// Width returns the X travel.
func (t Table) Width() float64 { return t.Right - t.Left }

// Depth returns the Y travel.
func (t Table) Depth() float64 { return t.Back - t.Front }

// Mount names, in the order they are reported.
const (
	BackRight   = "back-right"
	MiddleBack  = "middle-back"
	BackLeft    = "back-left"
	MiddleLeft  = "middle-left"
	FrontLeft   = "front-left"
	MiddleFront = "middle-front"
	FrontRight  = "front-right"
	MiddleRight = "middle-right"
	TableMiddle = "table-middle"
)

// Mount is a named mounting hole.
type Mount struct {
	Name string
	X, Y float64
}

// Mounts returns the nine mounting holes: four corners, four edge
// midpoints and the centre.
func (t Table) Mounts() []Mount {
	rx, lx := t.Right+t.RightMountX, t.Left+t.LeftMountX
	by, fy := t.Back+t.BackMountY, t.Front+t.FrontMountY
	mx, my := (lx+rx)/2, (by+fy)/2

	return []Mount{
		{BackRight, rx, by},
		{MiddleBack, mx, by},
		{BackLeft, lx, by},
		{MiddleLeft, lx, my},
		{FrontLeft, lx, fy},
		{MiddleFront, mx, fy},
		{FrontRight, rx, fy},
		{MiddleRight, rx, my},
		{TableMiddle, mx, my},
	}
}

// Corners returns the tool travel corners, clockwise from back-right.
func (t Table) Corners() [4][2]float64 {
	return [4][2]float64{
		{t.Right, t.Back},
		{t.Left, t.Back},
		{t.Left, t.Front},
		{t.Right, t.Front},
	}
}
