package grbl

import (
	"fmt"
	"math"
)

// DefaultStep is the smallest distance the machine moves on any axis, in mm.
const DefaultStep = 0.025

// Axis identifies one machine axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the G-code word letter for the axis.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Range is the travel of a single axis. Home is the limit-switch side, which
// reads zero after homing. Far is the opposite extreme; on this machine all
// useful travel is negative, so Far is below Home.
type Range struct {
	Home float64
	Far  float64
}

// Envelope is the rectangular region motion commands may target. Tolerance
// widens the X and Y ranges on both sides so that compensating micro-moves
// can run at the edges of the table.
type Envelope struct {
	X, Y, Z   Range
	Tolerance float64
}

// DefaultEnvelope returns the travel limits of a 420 x 370 mm table homed to
// its back-right corner. Z has no far limit because it depends on the
// mounted tool; configure one before plunging.
func DefaultEnvelope() Envelope {
	return Envelope{
		X:         Range{Home: 0, Far: -420},
		Y:         Range{Home: 0, Far: -370},
		Z:         Range{Home: 0, Far: math.Inf(-1)},
		Tolerance: DefaultStep,
	}
}

// Range returns the configured travel of axis.
func (e Envelope) Range(axis Axis) Range {
	switch axis {
	case AxisX:
		return e.X
	case AxisY:
		return e.Y
	default:
		return e.Z
	}
}

// Bounds returns the inclusive interval accepted on axis. X and Y accept
// either ordering of Home and Far. Z never accepts a value above Home.
func (e Envelope) Bounds(axis Axis) (lo, hi float64) {
	r := e.Range(axis)
	lo = math.Min(r.Home, r.Far) - e.Tolerance
	if axis == AxisZ {
		return lo, r.Home
	}
	return lo, math.Max(r.Home, r.Far) + e.Tolerance
}

// Contains reports whether v is an acceptable target on axis.
func (e Envelope) Contains(axis Axis, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	lo, hi := e.Bounds(axis)
	return lo <= v && v <= hi
}

// Check validates v against the envelope and returns it as a Coordinate, the
// only form the command formatter accepts.
func (e Envelope) Check(axis Axis, v float64) (Coordinate, error) {
	if axis < AxisX || axis > AxisZ {
		return Coordinate{}, fmt.Errorf("unknown axis %d", int(axis))
	}
	if !e.Contains(axis, v) {
		lo, hi := e.Bounds(axis)
		return Coordinate{}, &EnvelopeError{Axis: axis, Value: v, Min: lo, Max: hi}
	}
	return Coordinate{axis: axis, value: v}, nil
}

// Validate checks that the envelope itself is usable.
func (e Envelope) Validate() error {
	if e.Tolerance < 0 || math.IsNaN(e.Tolerance) || math.IsInf(e.Tolerance, 0) {
		return fmt.Errorf("tolerance must be a non-negative finite value, got %v", e.Tolerance)
	}
	for _, axis := range []Axis{AxisX, AxisY} {
		r := e.Range(axis)
		if math.IsNaN(r.Home) || math.IsInf(r.Home, 0) || math.IsNaN(r.Far) || math.IsInf(r.Far, 0) {
			return fmt.Errorf("%s range must be finite, got [%v, %v]", axis, r.Home, r.Far)
		}
		if r.Home == r.Far {
			return fmt.Errorf("%s range is empty: home and far are both %v", axis, r.Home)
		}
	}
	if math.IsNaN(e.Z.Home) || math.IsInf(e.Z.Home, 0) || math.IsNaN(e.Z.Far) {
		return fmt.Errorf("Z range must have a finite home and a far limit below it, got [%v, %v]", e.Z.Home, e.Z.Far)
	}
	if e.Z.Far > e.Z.Home {
		return fmt.Errorf("Z far limit %v is above home %v", e.Z.Far, e.Z.Home)
	}
	return nil
}

// Coordinate is an axis value that has passed an Envelope check.
type Coordinate struct {
	axis  Axis
	value float64
}

// Axis returns the coordinate's axis.
func (c Coordinate) Axis() Axis { return c.axis }

// Value returns the coordinate in millimetres.
func (c Coordinate) Value() float64 { return c.value }

// word renders the coordinate as a G-code word with three decimals.
func (c Coordinate) word() string {
	return fmt.Sprintf("%s%.3f", c.axis, c.value)
}
