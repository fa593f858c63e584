package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewPoints is returned when a fit has fewer points than unknowns.
var ErrTooFewPoints = errors.New("too few points to fit")

// ErrDegenerate is returned when the points do not determine a unique fit,
// for example collinear samples for a plane.
var ErrDegenerate = errors.New("points do not determine a unique fit")

// Plane is z = A*x + B*y + C.
type Plane struct {
	A, B, C float64

	// RMS is the root mean square height residual of the fitted samples.
	RMS   float64
	Count int
}

// Z evaluates the plane at (x, y).
func (p Plane) Z(x, y float64) float64 { return p.A*x + p.B*y + p.C }

// Shift returns the plane moved vertically by dz.
func (p Plane) Shift(dz float64) Plane {
	p.C += dz
	return p
}

func (p Plane) String() string {
	return fmt.Sprintf("%.16f * x  +  %.16f * y  +  %.16f  =  height (mm)", p.A, p.B, p.C)
}

// FitPlane returns the least squares plane through the samples that carry
// a height.
func FitPlane(samples []Sample) (Plane, error) {
	pts := Heights(samples)
	n := len(pts)
	if n < 3 {
		return Plane{}, fmt.Errorf("plane needs 3 heights, got %d: %w", n, ErrTooFewPoints)
	}

	design := mat.NewDense(n, 3, nil)
	z := mat.NewVecDense(n, nil)
	for i, s := range pts {
		design.Set(i, 0, s.X)
		design.Set(i, 1, s.Y)
		design.Set(i, 2, 1)
		z.SetVec(i, s.Z)
	}

	var qr mat.QR
	qr.Factorize(design)
	if cond := qr.Cond(); math.IsInf(cond, 1) || cond > 1e12 {
		return Plane{}, fmt.Errorf("plane fit condition %g: %w", cond, ErrDegenerate)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, z); err != nil {
		return Plane{}, fmt.Errorf("plane fit: %w", err)
	}

	p := Plane{A: coef.AtVec(0), B: coef.AtVec(1), C: coef.AtVec(2), Count: n}
	residuals := make([]float64, n)
	for i, s := range pts {
		residuals[i] = s.Z - p.Z(s.X, s.Y)
	}
	p.RMS = math.Sqrt(floats.Dot(residuals, residuals) / float64(n))
	return p, nil
}

// Line is y = M*x + B.
type Line struct {
	M, B  float64
	Count int
}

// Y evaluates the line at x.
func (l Line) Y(x float64) float64 { return l.M*x + l.B }

func (l Line) String() string {
	return fmt.Sprintf("y = %.16f * x  +  %.16f  (%d points)", l.M, l.B, l.Count)
}

// FitLine returns the least squares line through (xs[i], ys[i]). A set of
// points with a single x value has no finite slope and is ErrDegenerate.
func FitLine(xs, ys []float64) (Line, error) {
	if len(xs) != len(ys) {
		return Line{}, fmt.Errorf("line fit: %d x values but %d y values", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return Line{}, fmt.Errorf("line needs 2 points, got %d: %w", len(xs), ErrTooFewPoints)
	}
	if stat.Variance(xs, nil) == 0 {
		return Line{}, fmt.Errorf("all points share x = %g: %w", xs[0], ErrDegenerate)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Line{M: slope, B: intercept, Count: len(xs)}, nil
}

// Circle is the result of fitting points on a circle's edge.
type Circle struct {
	CenterX, CenterY float64
	MeanRadius       float64

	// ResidualsSum is the sum of squared radial deviations from MeanRadius,
	// which is Count times their variance.
	ResidualsSum float64

	// SquaredResidualsSum is the sum of (r_i^2 - R^2)^2, the quantity the
	// algebraic method minimises.
	SquaredResidualsSum float64

	Count  int
	Method string
}

func (c Circle) String() string {
	return fmt.Sprintf("%s: Center(%.4f, %.4f), MeanRadius(%.4f), ResidualsSum(%.4f), SquaredResidualsSum(%.4f), Count(%d)",
		c.Method, c.CenterX, c.CenterY, c.MeanRadius, c.ResidualsSum, c.SquaredResidualsSum, c.Count)
}

// MethodAlgebraic names the centroid-reduced algebraic circle fit.
const MethodAlgebraic = "algebraic"

// FitCircle finds the circle through samples with the algebraic method:
// coordinates are reduced to the centroid and the centre is the solution of
// the resulting 2x2 linear system. Z values are ignored.
func FitCircle(samples []Sample) (Circle, error) {
	n := len(samples)
	if n < 3 {
		return Circle{}, fmt.Errorf("circle needs 3 points, got %d: %w", n, ErrTooFewPoints)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range samples {
		xs[i], ys[i] = s.X, s.Y
	}
	xm, ym := stat.Mean(xs, nil), stat.Mean(ys, nil)

	var suu, svv, suv, suuu, svvv, suvv, svuu float64
	for i := range xs {
		u, v := xs[i]-xm, ys[i]-ym
		suu += u * u
		svv += v * v
		suv += u * v
		suuu += u * u * u
		svvv += v * v * v
		suvv += u * v * v
		svuu += v * u * u
	}

	a := mat.NewDense(2, 2, []float64{suu, suv, suv, svv})
	b := mat.NewVecDense(2, []float64{(suuu + suvv) / 2, (svvv + svuu) / 2})
	if det := mat.Det(a); math.Abs(det) < 1e-12*math.Max(1, suu*svv) {
		return Circle{}, fmt.Errorf("circle fit: %w", ErrDegenerate)
	}

	var centre mat.VecDense
	if err := centre.SolveVec(a, b); err != nil {
		return Circle{}, fmt.Errorf("circle fit: %w", err)
	}

	c := Circle{
		CenterX: xm + centre.AtVec(0),
		CenterY: ym + centre.AtVec(1),
		Count:   n,
		Method:  MethodAlgebraic,
	}
	radii := make([]float64, n)
	for i := range xs {
		radii[i] = math.Hypot(xs[i]-c.CenterX, ys[i]-c.CenterY)
	}
	c.MeanRadius = stat.Mean(radii, nil)
	for _, r := range radii {
		d := r - c.MeanRadius
		c.ResidualsSum += d * d
		sq := r*r - c.MeanRadius*c.MeanRadius
		c.SquaredResidualsSum += sq * sq
	}
	return c, nil
}
