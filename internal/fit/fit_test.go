package fit

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSamples(t *testing.T) {
	input := strings.Join([]string{
		"-420.0, 0.0, 1.25",
		"",
		"# probe run 2",
		"0,-370,1.5",
		"-210,-185",
	}, "\n")

	samples, err := ReadSamples(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, Sample{X: -420, Y: 0, Z: 1.25, HasZ: true}, samples[0])
	assert.Equal(t, Sample{X: -210, Y: -185}, samples[2])
	assert.Len(t, Heights(samples), 2)
}

func TestReadSamples_Errors(t *testing.T) {
	_, err := ReadSamples(strings.NewReader("1,2\n3\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadSamples(strings.NewReader("1,2,3,4\n"))
	assert.ErrorContains(t, err, "4 fields")

	_, err = ReadSamples(strings.NewReader("1,abc\n"))
	assert.ErrorContains(t, err, "field 2")
}

func TestBounds(t *testing.T) {
	e := Bounds([]Sample{{X: -1, Y: 2, Z: 3}, {X: 4, Y: -5, Z: 0}})
	assert.Equal(t, Extent{MinX: -1, MaxX: 4, MinY: -5, MaxY: 2, MinZ: 0, MaxZ: 3}, e)
	assert.Equal(t, Extent{}, Bounds(nil))
}

func TestFitPlane_Exact(t *testing.T) {
	want := Plane{A: 0.001, B: -0.002, C: 12.5}
	var samples []Sample
	for _, x := range []float64{-420, -210, 0} {
		for _, y := range []float64{-370, -185, 0} {
			samples = append(samples, Sample{X: x, Y: y, Z: want.Z(x, y), HasZ: true})
		}
	}

	got, err := FitPlane(samples)
	require.NoError(t, err)
	assert.InDelta(t, want.A, got.A, 1e-10)
	assert.InDelta(t, want.B, got.B, 1e-10)
	assert.InDelta(t, want.C, got.C, 1e-8)
	assert.InDelta(t, 0, got.RMS, 1e-8)
	assert.Equal(t, 9, got.Count)
}

func TestFitPlane_LeastSquares(t *testing.T) {
	samples := []Sample{
		{X: 0, Y: 0, Z: 1, HasZ: true},
		{X: 1, Y: 0, Z: 1, HasZ: true},
		{X: 0, Y: 1, Z: 1, HasZ: true},
		{X: 1, Y: 1, Z: 2, HasZ: true},
	}
	p, err := FitPlane(samples)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.A, 1e-12)
	assert.InDelta(t, 0.5, p.B, 1e-12)
	assert.InDelta(t, 0.75, p.C, 1e-12)
	assert.InDelta(t, 0.25, p.RMS, 1e-12)
}

func TestFitPlane_Errors(t *testing.T) {
	_, err := FitPlane([]Sample{{HasZ: true}, {X: 1, HasZ: true}, {Y: 1}})
	assert.True(t, errors.Is(err, ErrTooFewPoints))

	collinear := []Sample{
		{X: 0, Y: 0, Z: 1, HasZ: true},
		{X: 1, Y: 0, Z: 2, HasZ: true},
		{X: 2, Y: 0, Z: 3, HasZ: true},
	}
	_, err = FitPlane(collinear)
	assert.True(t, errors.Is(err, ErrDegenerate))
}

func TestPlaneShiftAndString(t *testing.T) {
	p := Plane{A: 1, B: 2, C: 3}.Shift(-3)
	assert.Equal(t, 0.0, p.C)
	assert.Equal(t, "1.0000000000000000 * x  +  2.0000000000000000 * y  +  0.0000000000000000  =  height (mm)", p.String())
}

func TestFitLine(t *testing.T) {
	l, err := FitLine([]float64{0, 0, 1, 1}, []float64{0, 1, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, l.M, 1e-12)
	assert.InDelta(t, 0.5, l.B, 1e-12)

	l, err = FitLine([]float64{1, 2, 3}, []float64{3, 5, 7})
	require.NoError(t, err)
	assert.InDelta(t, 2, l.M, 1e-12)
	assert.InDelta(t, 1, l.B, 1e-12)
	assert.InDelta(t, 9, l.Y(4), 1e-12)

	_, err = FitLine([]float64{0, 0, 0}, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrDegenerate))
	_, err = FitLine([]float64{1}, []float64{1})
	assert.True(t, errors.Is(err, ErrTooFewPoints))
	_, err = FitLine([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestFitCircle(t *testing.T) {
	const cx, cy, r = -123.4, -56.7, 12.7
	var samples []Sample
	for i := 0; i < 8; i++ {
		theta := float64(i) * math.Pi / 4
		samples = append(samples, Sample{X: cx + r*math.Cos(theta), Y: cy + r*math.Sin(theta)})
	}

	c, err := FitCircle(samples)
	require.NoError(t, err)
	assert.InDelta(t, cx, c.CenterX, 1e-9)
	assert.InDelta(t, cy, c.CenterY, 1e-9)
	assert.InDelta(t, r, c.MeanRadius, 1e-9)
	assert.InDelta(t, 0, c.ResidualsSum, 1e-12)
	assert.Equal(t, 8, c.Count)
	assert.Equal(t, MethodAlgebraic, c.Method)
	assert.Contains(t, c.String(), "algebraic: Center(-123.4000, -56.7000)")
}

func TestFitCircle_PartialArc(t *testing.T) {
	samples := []Sample{{X: 10, Y: 0}, {X: 0, Y: 10}, {X: -10, Y: 0}}
	c, err := FitCircle(samples)
	require.NoError(t, err)
	assert.InDelta(t, 0, c.CenterX, 1e-9)
	assert.InDelta(t, 0, c.CenterY, 1e-9)
	assert.InDelta(t, 10, c.MeanRadius, 1e-9)
}

func TestFitCircle_Errors(t *testing.T) {
	_, err := FitCircle([]Sample{{}, {X: 1}})
	assert.True(t, errors.Is(err, ErrTooFewPoints))

	_, err = FitCircle([]Sample{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.True(t, errors.Is(err, ErrDegenerate))
}
