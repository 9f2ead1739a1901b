package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth    = "1200px"
	chartHeight   = "500px"
	xAxisRotate   = 45
	colorDistinct = "#5470c6"
	colorTop      = "#fac858"
)

// writePlot renders an HTML bar chart with the number of distinct hashes and
// the count of the most frequent hash at every lattice position.
func writePlot(w io.Writer, report Report) error {
	labels := make([]string, len(report.Positions))
	distinct := make([]opts.BarData, len(report.Positions))
	top := make([]opts.BarData, len(report.Positions))

	for i, p := range report.Positions {
		labels[i] = p.Subset
		distinct[i] = opts.BarData{Value: p.Distinct}

		var best int64
		if len(p.Counts) > 0 {
			best = p.Counts[0].Count
		}

		top[i] = opts.BarData{Value: best}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "lattice profile " + report.RunID,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s lattice", report.Lift),
			Subtitle: fmt.Sprintf("%d rows, %d skipped", report.Rows, report.Skipped),
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Rows / values"}),
	)

	bar.SetXAxis(labels).
		AddSeries("Distinct values", distinct, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorDistinct})).
		AddSeries("Most frequent count", top, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorTop}))

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
