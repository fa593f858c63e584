package grbl

import "fmt"

// Position is the tool location in millimetres, in the active work frame.
type Position struct {
	X, Y, Z float64
}

// Get returns the component of p on axis.
func (p Position) Get(axis Axis) float64 {
	switch axis {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	default:
		return p.Z
	}
}

func (p *Position) set(c Coordinate) {
	switch c.axis {
	case AxisX:
		p.X = c.value
	case AxisY:
		p.Y = c.value
	case AxisZ:
		p.Z = c.value
	}
}

func (p Position) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}
