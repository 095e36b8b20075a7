package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteChart renders an HTML page with one bar chart per indicator,
// scenarios along the x axis.
func WriteChart(w io.Writer, title string, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no KPI records to chart")
	}

	labels := make([]string, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Scenario)
	}

	page := components.NewPage()
	page.PageTitle = title
	for _, s := range Summarize(rows) {
		data := make([]opts.BarData, 0, len(rows))
		for _, r := range rows {
			if v, ok := r.KPI[s.Name]; ok {
				data = append(data, opts.BarData{Value: v})
			} else {
				data = append(data, opts.BarData{Value: "-"})
			}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: s.Name, Subtitle: fmt.Sprintf("mean %.4g  std %.4g", s.Mean, s.Std)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(labels).
			AddSeries(s.Name, data,
				charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			)
		page.AddCharts(bar)
	}

	return page.Render(w)
}
