package leveling

import (
	"fmt"
	"io"
	"strings"
)

// WriteText prints the report the way an operator reads it at the machine:
// fit formulas, measurement extents, thickness differences, the mount table
// and a plan view of the raise amounts.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder
	t := r.Table

	fmt.Fprintf(&b, "Tool travel corners:\n\n")
	fmt.Fprintf(&b, "  back-left:  (%g, %g)    back-right:  (%g, %g)\n", t.Left, t.Back, t.Right, t.Back)
	fmt.Fprintf(&b, "  front-left: (%g, %g)    front-right: (%g, %g)\n\n", t.Left, t.Front, t.Right, t.Front)

	fmt.Fprintf(&b, "Least squares fit of the measured data (%d points, rms %.4f mm):\n\n", r.Measured.Count, r.Measured.RMS)
	fmt.Fprintf(&b, "  %s\n\n", r.Measured)

	fmt.Fprintf(&b, "Measurement minima and maxima:\n\n")
	fmt.Fprintf(&b, "  X: min(%.3f), max(%.3f)\n", r.Extent.MinX, r.Extent.MaxX)
	fmt.Fprintf(&b, "  Y: min(%.3f), max(%.3f)\n", r.Extent.MinY, r.Extent.MaxY)
	fmt.Fprintf(&b, "  Z: min(%.3f), max(%.3f)\n\n", r.Extent.MinZ, r.Extent.MaxZ)
	for _, warning := range r.Warnings {
		fmt.Fprintf(&b, "Warning: %s.\n", warning)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "A 100 mm part milled on this table will vary in thickness by:\n\n")
	fmt.Fprintf(&b, "  %.3f mm in X (left-right)\n", r.DiffX100)
	fmt.Fprintf(&b, "  %.3f mm in Y (back-front)\n", r.DiffY100)
	fmt.Fprintf(&b, "  %.3f mm diagonally\n\n", r.DiffDiag100)

	fmt.Fprintf(&b, "Fit relative to the highest corner mount:\n\n")
	fmt.Fprintf(&b, "  %s\n\n", r.Relative)

	fmt.Fprintf(&b, "Mount heights relative to the highest corner mount:\n\n")
	for _, m := range r.Mounts {
		fmt.Fprintf(&b, "  %-12s: X(%8.3f), Y(%8.3f), Z(%8.3f)\n", m.Name, m.X, m.Y, m.Z)
	}

	raise := func(name string) float64 {
		m, _ := r.Mount(name)
		return m.Raise
	}
	fmt.Fprintf(&b, "\nRaise the table at its mounting holes by (mm):\n\n")
	fmt.Fprintf(&b, "                BACK\n\n")
	fmt.Fprintf(&b, "        %.3f   %.3f   %.3f\n\n", raise(BackLeft), raise(MiddleBack), raise(BackRight))
	fmt.Fprintf(&b, "LEFT    %.3f   %.3f   %.3f    RIGHT\n\n", raise(MiddleLeft), raise(TableMiddle), raise(MiddleRight))
	fmt.Fprintf(&b, "        %.3f   %.3f   %.3f\n\n", raise(FrontLeft), raise(MiddleFront), raise(FrontRight))
	fmt.Fprintf(&b, "                FRONT\n")

	_, err := io.WriteString(w, b.String())
	return err
}
