package util

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
	"github.com/marimba-lab/bartuner/pkg/tuning/profile"
)

const profilePoints = 400

// PlotConvergence renders best and mean fitness per generation to an HTML
// file at path.
func PlotConvergence(path, title string, history []framework.Stats) error {
	if len(history) == 0 {
		return fmt.Errorf("history is empty for %s", title)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "fitness",
			Type: "log",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	gens := make([]int, len(history))
	best := make([]opts.LineData, len(history))
	mean := make([]opts.LineData, len(history))
	for i, s := range history {
		gens[i] = i
		best[i] = opts.LineData{Value: s.Best}
		mean[i] = opts.LineData{Value: s.Mean}
	}
	line.SetXAxis(gens).
		AddSeries("best", best).
		AddSeries("mean", mean)

	return render(path, line)
}

// PlotProfile renders the height profile of cuts on bar to an HTML file at
// path.
func PlotProfile(path, title string, cuts []framework.Cut, bar framework.BarParameters) error {
	pts := profile.Points(cuts, bar.L, bar.H0, profilePoints)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d cuts, L=%.1f mm", len(cuts), bar.L*1000),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (mm)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "h (mm)", Min: 0}))

	xs := make([]string, len(pts))
	hs := make([]opts.LineData, len(pts))
	for i, p := range pts {
		xs[i] = fmt.Sprintf("%.1f", p.X*1000)
		hs[i] = opts.LineData{Value: p.H * 1000}
	}
	line.SetXAxis(xs).
		AddSeries("thickness", hs, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))

	return render(path, line)
}

func render(path string, c *charts.Line) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Render(f)
}
