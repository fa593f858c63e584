package leveling

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/tablecal/internal/fit"
)

// Rendered image size.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 7 * vg.Inch
)

// NewPlot draws the probe samples in plan view, coloured by their residual
// from the measured plane, with the mounting holes marked.
func NewPlot(r Report, samples []fit.Sample) (*plot.Plot, error) {
	pts := fit.Heights(samples)
	if len(pts) == 0 {
		return nil, fmt.Errorf("nothing to plot: no samples with heights")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Table surface residuals (%d points)", len(pts))
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(pts))
	residuals := make([]float64, len(pts))
	lo, hi := 0.0, 0.0
	for i, s := range pts {
		xys[i] = plotter.XY{X: s.X, Y: s.Y}
		residuals[i] = s.Z - r.Measured.Z(s.X, s.Y)
		lo, hi = min(lo, residuals[i]), max(hi, residuals[i])
	}
	if lo == hi {
		hi = lo + 1
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to create sample scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := cmap.At(residuals[i])
		if err != nil {
			c = color.Gray{Y: 128}
		}
		return draw.GlyphStyle{Color: c, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
	}
	p.Add(scatter)
	p.Legend.Add("samples", scatter)

	mounts := make(plotter.XYs, len(r.Mounts))
	labels := make([]string, len(r.Mounts))
	for i, m := range r.Mounts {
		mounts[i] = plotter.XY{X: m.X, Y: m.Y}
		labels[i] = fmt.Sprintf("%s +%.3f", m.Name, m.Raise)
	}
	mountScatter, err := plotter.NewScatter(mounts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mount scatter: %w", err)
	}
	mountScatter.GlyphStyle = draw.GlyphStyle{Color: color.Black, Radius: vg.Points(3), Shape: draw.CrossGlyph{}}
	mountLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: mounts, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("failed to create mount labels: %w", err)
	}
	p.Add(mountScatter, mountLabels)
	p.Legend.Add("mounts", mountScatter)

	return p, nil
}

// PlotSamples saves the plot to path; the extension picks the format.
func PlotSamples(path string, r Report, samples []fit.Sample) error {
	p, err := NewPlot(r, samples)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// WritePNG renders the plot as PNG to w.
func WritePNG(w io.Writer, r Report, samples []fit.Sample) error {
	p, err := NewPlot(r, samples)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
