package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gkobilansky/ab-goat/internal/dataset"
)

// GridPoints is the number of evenly spaced points on [0, 1] at which
// posterior densities are evaluated.
const GridPoints = 1000

// Curve is the Beta posterior of one arm's conversion rate under a uniform
// Beta(1, 1) prior.
type Curve struct {
	Arm       string
	Successes int
	Failures  int
	A         float64 // successes + 1
	B         float64 // failures + 1
	Density   []float64
}

// Label identifies the curve and its shape parameters.
func (c Curve) Label() string {
	return fmt.Sprintf("%s (a=%d, b=%d)", c.Arm, int(c.A), int(c.B))
}

// Mean is the posterior mean conversion rate.
func (c Curve) Mean() float64 {
	return c.dist().Mean()
}

func (c Curve) dist() distuv.Beta {
	return distuv.Beta{Alpha: c.A, Beta: c.B}
}

// Posterior holds the two arms' posterior curves over a shared grid.
type Posterior struct {
	Grid   []float64
	Curves []Curve // first occurrence order

	// ProbTreatmentBeats is P(treatment rate > control rate).
	ProbTreatmentBeats float64
}

// Curve returns the curve for arm.
func (p *Posterior) Curve(arm string) (Curve, bool) {
	for _, c := range p.Curves {
		if c.Arm == arm {
			return c, true
		}
	}
	return Curve{}, false
}

// EstimatePosterior computes Beta(successes+1, failures+1) for each arm.
// It requires the assignment column to hold exactly the two labels in arms.
func EstimatePosterior(conv *dataset.Converted, assignmentCol string, arms Arms) (*Posterior, Reason) {
	if conv == nil {
		return nil, ReasonNotConverted
	}
	if conv.Empty() {
		return nil, ReasonEmptyDataset
	}
	if !conv.HasColumn(assignmentCol) {
		return nil, ReasonMissingColumn
	}

	groups := tally(conv, assignmentCol)
	if !arms.matches(groupLabels(groups)) {
		return nil, ReasonArmMismatch
	}

	grid := Grid(GridPoints)
	p := &Posterior{Grid: grid, Curves: make([]Curve, len(groups))}
	for i, g := range groups {
		failures := g.size - g.successes
		c := Curve{
			Arm:       g.label,
			Successes: g.successes,
			Failures:  failures,
			A:         float64(g.successes + 1),
			B:         float64(failures + 1),
		}
		c.Density = density(c.dist(), grid)
		p.Curves[i] = c
	}

	control, _ := p.Curve(arms.Control)
	treatment, _ := p.Curve(arms.Treatment)
	p.ProbTreatmentBeats = ProbGreater(treatment, control)

	return p, ReasonNone
}

// Grid returns n evenly spaced points from 0 to 1 inclusive.
func Grid(n int) []float64 {
	if n < 2 {
		return []float64{0}
	}
	return floats.Span(make([]float64, n), 0, 1)
}

func density(b distuv.Beta, grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		y := b.Prob(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			y = 0
		}
		out[i] = y
	}
	return out
}

// probSteps is the number of trapezoids used for P(X > Y).
const probSteps = 4000

// ProbGreater returns P(X > Y) for independent posteriors x and y by
// integrating f_x(t) * F_y(t) over X's mean +/- 12 sd, clipped to [0, 1].
// The window follows X's spread, so large samples keep a fine step.
func ProbGreater(x, y Curve) float64 {
	xd, yd := x.dist(), y.dist()

	lo := math.Max(0, xd.Mean()-12*xd.StdDev())
	hi := math.Min(1, xd.Mean()+12*xd.StdDev())
	if hi <= lo {
		return 0.5
	}

	ts := floats.Span(make([]float64, probSteps+1), lo, hi)
	f := make([]float64, len(ts))
	for i, t := range ts {
		d := xd.Prob(t)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			d = 0
		}
		f[i] = d * yd.CDF(t)
	}

	p := integrate.Trapezoidal(ts, f)
	return math.Max(0, math.Min(1, p))
}
