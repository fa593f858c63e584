package leveling

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tablecal/internal/fit"
)

// echartsAssetsHost serves the echarts javascript for rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

var residualColors = []string{"#313695", "#4575b4", "#74add1", "#abd9e9", "#e0f3f8", "#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026"}

// RenderChart writes an interactive HTML scatter of the samples, coloured
// by residual from the measured plane, with the mount raises as a second
// series.
func RenderChart(w io.Writer, r Report, samples []fit.Sample) error {
	pts := fit.Heights(samples)

	data := make([]opts.ScatterData, 0, len(pts))
	lo, hi := 0.0, 0.0
	for _, s := range pts {
		res := s.Z - r.Measured.Z(s.X, s.Y)
		lo, hi = min(lo, res), max(hi, res)
		data = append(data, opts.ScatterData{Value: []interface{}{s.X, s.Y, res}})
	}

	mounts := make([]opts.ScatterData, 0, len(r.Mounts))
	for _, m := range r.Mounts {
		mounts = append(mounts, opts.ScatterData{Name: m.Name, Value: []interface{}{m.X, m.Y, m.Raise}})
	}

	t := r.Table
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Table leveling", Width: "900px", Height: "800px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Table surface residuals",
			Subtitle: fmt.Sprintf("points=%d rms=%.4f mm diag/100mm=%.3f mm", len(pts), r.Measured.RMS, r.DiffDiag100),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: t.Left + t.LeftMountX, Max: t.Right + t.RightMountX, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: t.Front, Max: t.Back + t.BackMountY, Name: "Y (mm)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: residualColors},
		}),
	)
	scatter.AddSeries("samples", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("mounts", mounts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right", Formatter: "{b}"}),
	)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
