package stats

import (
	"github.com/gkobilansky/ab-goat/internal/dataset"
)

// ConversionRecord holds the conversion statistics of one assignment group.
type ConversionRecord struct {
	Group     string
	Count     int
	Successes int
	Rate      float64
	CILower   float64
	CIUpper   float64
}

// Conversion is the result of AnalyzeConversions.
type Conversion struct {
	Records []ConversionRecord

	// Lift is (treatment - control) / control. Nil when LiftReason is set.
	Lift       *float64
	LiftReason Reason

	// Data carries the conversion flags into ChiSquaredTest and
	// EstimatePosterior.
	Data *dataset.Converted
}

// Record returns the record for group, if any.
func (c *Conversion) Record(group string) (ConversionRecord, bool) {
	for _, r := range c.Records {
		if r.Group == group {
			return r, true
		}
	}
	return ConversionRecord{}, false
}

// AnalyzeConversions derives a conversion flag from sel.Event2, aggregates
// it per assignment group in order of first occurrence and computes the lift
// of arms.Treatment over arms.Control.
//
// sel.Event1 must exist but does not take part in the computation.
func AnalyzeConversions(ds *dataset.Dataset, sel Selection, arms Arms) (*Conversion, Reason) {
	if ds.Empty() {
		return nil, ReasonEmptyDataset
	}
	if !ds.HasColumn(sel.Event1) || !ds.HasColumn(sel.Event2) || !ds.HasColumn(sel.Assignment) {
		return nil, ReasonMissingColumn
	}

	conv, _ := ds.WithConversion(sel.Event2)
	groups := tally(conv, sel.Assignment)

	records := make([]ConversionRecord, len(groups))
	labels := make([]string, len(groups))
	for i, g := range groups {
		lower, upper := WilsonInterval(g.successes, g.size, 0.95)
		records[i] = ConversionRecord{
			Group:     g.label,
			Count:     g.size,
			Successes: g.successes,
			Rate:      g.rate(),
			CILower:   lower,
			CIUpper:   upper,
		}
		labels[i] = g.label
	}

	result := &Conversion{Records: records, Data: conv}
	result.Lift, result.LiftReason = lift(result, labels, arms)
	return result, ReasonNone
}

func lift(c *Conversion, labels []string, arms Arms) (*float64, Reason) {
	if !arms.matches(labels) {
		return nil, ReasonArmMismatch
	}

	control, _ := c.Record(arms.Control)
	treatment, _ := c.Record(arms.Treatment)
	if control.Rate == 0 {
		return nil, ReasonZeroControlRate
	}

	l := (treatment.Rate - control.Rate) / control.Rate
	return &l, ReasonNone
}

type group struct {
	label     string
	size      int
	successes int
}

func (g group) rate() float64 {
	if g.size == 0 {
		return 0
	}
	return float64(g.successes) / float64(g.size)
}

// tally counts rows and conversions per assignment value. Rows whose
// assignment is null belong to no group.
func tally(conv *dataset.Converted, assignmentCol string) []group {
	var groups []group
	pos := make(map[string]int)

	for i := 0; i < conv.Len(); i++ {
		v := conv.Value(i, assignmentCol)
		if dataset.IsNull(v) {
			continue
		}

		label := dataset.Label(v)
		j, ok := pos[label]
		if !ok {
			j = len(groups)
			pos[label] = j
			groups = append(groups, group{label: label})
		}

		groups[j].size++
		if conv.Converted(i) {
			groups[j].successes++
		}
	}

	return groups
}

func groupLabels(groups []group) []string {
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.label
	}
	return labels
}
