package leveling

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablecal/internal/fit"
	"github.com/banshee-data/tablecal/internal/grbl"
)

func gridSamples(p fit.Plane, t Table) []fit.Sample {
	var samples []fit.Sample
	for _, x := range []float64{t.Left, (t.Left + t.Right) / 2, t.Right} {
		for _, y := range []float64{t.Front, (t.Front + t.Back) / 2, t.Back} {
			samples = append(samples, fit.Sample{X: x, Y: y, Z: p.Z(x, y), HasZ: true})
		}
	}
	return samples
}

func TestMounts(t *testing.T) {
	mounts := DefaultTable().Mounts()
	want := []Mount{
		{BackRight, 112, 194.5},
		{MiddleBack, -208.5, 194.5},
		{BackLeft, -529, 194.5},
		{MiddleLeft, -529, -85.25},
		{FrontLeft, -529, -365},
		{MiddleFront, -208.5, -365},
		{FrontRight, 112, -365},
		{MiddleRight, 112, -85.25},
		{TableMiddle, -208.5, -85.25},
	}
	if diff := cmp.Diff(want, mounts); diff != "" {
		t.Errorf("mounts mismatch (-want +got):\n%s", diff)
	}
}

func TestTableFromEnvelope(t *testing.T) {
	env := grbl.DefaultEnvelope()
	env.X.Far = -800
	table := TableFromEnvelope(env)
	assert.Equal(t, -800.0, table.Left)
	assert.Equal(t, 0.0, table.Right)
	assert.Equal(t, 800.0, table.Width())
	assert.Equal(t, 370.0, table.Depth())
}

func TestAnalyze_FlatTable(t *testing.T) {
	table := DefaultTable()
	plane := fit.Plane{C: 2.5, Count: 9}
	r := Analyze(table, plane, gridSamples(plane, table))

	assert.Empty(t, r.Warnings)
	assert.Zero(t, r.DiffX100)
	assert.Zero(t, r.DiffY100)
	assert.Zero(t, r.DiffDiag100)
	assert.InDelta(t, 0, r.Relative.C, 1e-12)
	for _, m := range r.Mounts {
		assert.InDelta(t, 0, m.Raise, 1e-12, m.Name)
	}
}

func TestAnalyze_TiltedTable(t *testing.T) {
	table := DefaultTable()
	// Rises 0.1 mm per 100 mm towards the right.
	plane := fit.Plane{A: 0.001, C: 1}
	r := Analyze(table, plane, gridSamples(plane, table))

	// Right mounts are at x=112, left at x=-529: 0.641 mm apart.
	assert.InDelta(t, 100*0.641/420, r.DiffX100, 1e-9)
	assert.InDelta(t, 0, r.DiffY100, 1e-12)
	assert.InDelta(t, r.DiffX100, r.DiffDiag100, 1e-12)

	right, ok := r.Mount(BackRight)
	require.True(t, ok)
	assert.InDelta(t, 0, right.Raise, 1e-9)

	left, ok := r.Mount(FrontLeft)
	require.True(t, ok)
	assert.InDelta(t, 0.641, left.Raise, 1e-9)
	assert.InDelta(t, -0.641, left.Z, 1e-9)

	middle, _ := r.Mount(TableMiddle)
	assert.InDelta(t, 0.3205, middle.Raise, 1e-9)

	_, ok = r.Mount("nowhere")
	assert.False(t, ok)
}

func TestAnalyze_MissingExtremes(t *testing.T) {
	samples := []fit.Sample{
		{X: -400, Y: 0, Z: 1, HasZ: true},
		{X: 0, Y: -370, Z: 1, HasZ: true},
		{X: -200, Y: -100, Z: 1, HasZ: true},
	}
	r := Analyze(DefaultTable(), fit.Plane{C: 1}, samples)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "left extreme (-420.000)")
}

func TestWriteText(t *testing.T) {
	table := DefaultTable()
	plane := fit.Plane{A: 0.002, C: 1, Count: 9}
	r := Analyze(table, plane, gridSamples(plane, table))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "0.0020000000000000 * x")
	assert.Contains(t, out, "front-left  : X(-529.000), Y(-365.000), Z(  -1.282)")
	assert.Contains(t, out, "LEFT    1.282   0.641   0.000    RIGHT")
	assert.NotContains(t, out, "Warning")
}

func TestSurfacePath(t *testing.T) {
	env := grbl.DefaultEnvelope()
	env.X = grbl.Range{Home: 0, Far: -10}
	env.Y = grbl.Range{Home: 0, Far: -8}
	env.Z.Far = -5

	plane := fit.Plane{A: 0.1, C: 0.5}
	path, err := SurfacePath(plane, env, 4, 1)
	require.NoError(t, err)

	// X: -10, -6, -2, 0; Y: -8, -4, 0.
	require.Len(t, path, 12)
	assert.Equal(t, Waypoint{X: -10, Y: -8, Z: math.Max(plane.Z(-10, -8)-1, -5)}, path[0])
	assert.Equal(t, 0.0, path[3].X)
	assert.True(t, path[3].RowEnd)
	assert.Equal(t, 0.0, path[4].X, "second row runs back")
	assert.Equal(t, -4.0, path[4].Y)
	assert.Equal(t, -10.0, path[7].X)

	for _, wp := range path {
		assert.LessOrEqual(t, wp.Z, env.Z.Home)
		assert.GreaterOrEqual(t, wp.Z, env.Z.Far)
		assert.True(t, env.Contains(grbl.AxisX, wp.X))
		assert.True(t, env.Contains(grbl.AxisY, wp.Y))
	}
}

func TestSurfacePath_ClampsAboveHome(t *testing.T) {
	env := grbl.DefaultEnvelope()
	path, err := SurfacePath(fit.Plane{C: 3}, env, 100, 1)
	require.NoError(t, err)
	for _, wp := range path {
		assert.Equal(t, 0.0, wp.Z)
	}
}

func TestSurfacePath_Errors(t *testing.T) {
	env := grbl.DefaultEnvelope()
	_, err := SurfacePath(fit.Plane{}, env, 0, 1)
	assert.Error(t, err)
	_, err = SurfacePath(fit.Plane{}, env, 1, -1)
	assert.Error(t, err)
	env.Tolerance = -1
	_, err = SurfacePath(fit.Plane{}, env, 1, 1)
	assert.Error(t, err)
}

func TestPlotSamples(t *testing.T) {
	table := DefaultTable()
	plane := fit.Plane{A: 0.001, B: -0.0005, C: 1}
	samples := gridSamples(plane, table)
	samples[4].Z += 0.05
	r := Analyze(table, plane, samples)

	path := filepath.Join(t.TempDir(), "surface.png")
	require.NoError(t, PlotSamples(path, r, samples))

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, r, samples))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, PlotSamples(path, r, nil))
}

func TestRenderChart(t *testing.T) {
	table := DefaultTable()
	plane := fit.Plane{A: 0.001, C: 1, Count: 9}
	samples := gridSamples(plane, table)
	r := Analyze(table, plane, samples)

	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, r, samples))
	html := buf.String()
	assert.True(t, strings.Contains(html, "Table surface residuals"))
	assert.Contains(t, html, "table-middle")
}
