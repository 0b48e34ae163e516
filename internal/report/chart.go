package report

import (
	"fmt"
	"strings"
)

// BarChart is a horizontal bar chart of conversion rate per group with
// the x axis fixed to [0, 1].
type BarChart struct {
	Title  string
	XLabel string
	Bars   []Bar
}

// Bar is one group's bar.
type Bar struct {
	Label string
	Value float64
	Width float64 // percent of the axis
	Text  string
}

// Bars returns the conversion bar chart, or nil without conversion records.
func Bars(r *Report) *BarChart {
	if r.Conversion == nil {
		return nil
	}

	chart := &BarChart{
		Title:  "Conversion Rate by Assignment",
		XLabel: "Conversion Rate",
		Bars:   make([]Bar, len(r.Conversion.Records)),
	}
	for i, rec := range r.Conversion.Records {
		chart.Bars[i] = Bar{
			Label: rec.Group,
			Value: rec.Rate,
			Width: rec.Rate * 100,
			Text:  FormatPercent(rec.Rate),
		}
	}
	return chart
}

// LineChart is an SVG-ready plot of the posterior densities.
type LineChart struct {
	Title  string
	XLabel string
	YLabel string
	Width  int
	Height int
	Plot   Rect
	YMax   float64
	XTicks []Tick
	YTicks []Tick
	Series []Series
}

// Rect is the plotting area inside the chart margins.
type Rect struct {
	X, Y, W, H float64
}

// Tick is an axis tick position with its label.
type Tick struct {
	Pos   float64
	Label string
}

// Series is one polyline with its legend entry.
type Series struct {
	Label  string
	Color  string
	Points string // SVG polyline points
}

var palette = []string{"#1f77b4", "#ff7f0e"}

const (
	marginLeft   = 56.0
	marginRight  = 16.0
	marginTop    = 32.0
	marginBottom = 44.0
)

// PosteriorChart lays the posterior curves out on a width x height canvas,
// or returns nil without a posterior.
func PosteriorChart(r *Report, width, height int) *LineChart {
	p := r.Posterior
	if p == nil {
		return nil
	}

	plot := Rect{
		X: marginLeft,
		Y: marginTop,
		W: float64(width) - marginLeft - marginRight,
		H: float64(height) - marginTop - marginBottom,
	}

	yMax := 0.0
	for _, c := range p.Curves {
		for _, y := range c.Density {
			if y > yMax {
				yMax = y
			}
		}
	}
	if yMax == 0 {
		yMax = 1
	}
	yMax *= 1.05

	chart := &LineChart{
		Title:  "Posterior Distribution of Conversion Rates",
		XLabel: "Conversion Rate",
		YLabel: "Posterior Density",
		Width:  width,
		Height: height,
		Plot:   plot,
		YMax:   yMax,
	}

	for i := 0; i <= 5; i++ {
		x := float64(i) / 5
		chart.XTicks = append(chart.XTicks, Tick{Pos: plot.X + x*plot.W, Label: fmt.Sprintf("%.1f", x)})

		y := yMax * float64(i) / 5
		chart.YTicks = append(chart.YTicks, Tick{Pos: plot.Y + plot.H - float64(i)/5*plot.H, Label: fmt.Sprintf("%.1f", y)})
	}

	for i, c := range p.Curves {
		var pts strings.Builder
		for j, x := range p.Grid {
			if j > 0 {
				pts.WriteByte(' ')
			}
			px := plot.X + x*plot.W
			py := plot.Y + plot.H - c.Density[j]/yMax*plot.H
			fmt.Fprintf(&pts, "%.2f,%.2f", px, py)
		}
		chart.Series = append(chart.Series, Series{
			Label:  c.Label(),
			Color:  palette[i%len(palette)],
			Points: pts.String(),
		})
	}

	return chart
}
