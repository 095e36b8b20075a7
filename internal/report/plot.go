package report

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
)

const kelvin = 273.15

// PlotColumn draws one measurement column as an ASCII chart. Columns in
// K are shown in degC.
func PlotColumn(table *ctrltest.Table, column string, height, width int) (string, error) {
	data, err := table.Column(column)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no data to plot")
	}

	caption := column
	if isTemperature(column) {
		for i := range data {
			data[i] -= kelvin
		}
		caption += " (degC)"
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}

// SavePNG plots the given columns against time in hours and writes an
// image to path. The format follows the file extension.
func SavePNG(table *ctrltest.Table, title, path string, columns ...string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (h)"
	p.Add(plotter.NewGrid())

	for i, name := range columns {
		ys, err := table.Column(name)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, len(ys))
		for j, y := range ys {
			if isTemperature(name) {
				y -= kelvin
			}
			pts[j] = plotter.XY{X: table.Index[j] / 3600, Y: y}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot %s: %w", name, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

func isTemperature(column string) bool {
	return len(column) > 4 && (column[:4] == "reaT" || column[:4] == "weaT")
}
