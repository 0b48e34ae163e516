// Package report runs the conversion, significance and posterior analyses
// over one dataset and collects their results or the user-facing
// explanation for each missing one.
package report

import (
	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/stats"
)

// SampleRows is the number of rows shown in the sample table.
const SampleRows = 10

// Report is the complete output of one analysis.
type Report struct {
	Selection stats.Selection
	Arms      stats.Arms
	Rows      int
	Sample    *dataset.Dataset

	Conversion       *stats.Conversion
	ConversionReason stats.Reason

	ChiSquared       *stats.ChiSquared
	ChiSquaredReason stats.Reason

	Posterior       *stats.Posterior
	PosteriorReason stats.Reason
}

// Build analyses ds. The significance and posterior steps consume the
// conversion flags derived by the conversion step, so they are absent
// whenever it is.
func Build(ds *dataset.Dataset, sel stats.Selection, arms stats.Arms) *Report {
	r := &Report{
		Selection: sel,
		Arms:      arms,
		Rows:      ds.Len(),
		Sample:    ds.Head(SampleRows),
	}

	r.Conversion, r.ConversionReason = stats.AnalyzeConversions(ds, sel, arms)

	var conv *dataset.Converted
	if r.Conversion != nil {
		conv = r.Conversion.Data
	}

	r.ChiSquared, r.ChiSquaredReason = stats.ChiSquaredTest(conv, sel.Assignment)
	r.Posterior, r.PosteriorReason = stats.EstimatePosterior(conv, sel.Assignment, arms)

	return r
}

// Lift returns the relative lift, if available.
func (r *Report) Lift() (float64, bool) {
	if r.Conversion == nil || r.Conversion.Lift == nil {
		return 0, false
	}
	return *r.Conversion.Lift, true
}

// LiftReason explains a missing lift.
func (r *Report) LiftReason() stats.Reason {
	if r.Conversion == nil {
		return r.ConversionReason
	}
	return r.Conversion.LiftReason
}

// Message returns the user-facing explanation for a missing component, or
// "" when the component is present.
func (r *Report) Message(c stats.Component) string {
	if r.Reason(c) == stats.ReasonNone {
		return ""
	}
	return r.Arms.Unavailable(c)
}

// Reason returns why component c is missing.
func (r *Report) Reason(c stats.Component) stats.Reason {
	switch c {
	case stats.ComponentConversion:
		return r.ConversionReason
	case stats.ComponentLift:
		return r.LiftReason()
	case stats.ComponentChiSquared:
		return r.ChiSquaredReason
	case stats.ComponentPosterior:
		return r.PosteriorReason
	}
	return stats.ReasonNone
}

// Components lists every output in display order.
func Components() []stats.Component {
	return []stats.Component{
		stats.ComponentConversion,
		stats.ComponentLift,
		stats.ComponentChiSquared,
		stats.ComponentPosterior,
	}
}
