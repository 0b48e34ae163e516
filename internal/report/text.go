package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/stats"
)

// FormatPercent renders a fraction as a percentage with two decimals.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// LiftLine is the sentence reporting the treatment's lift over control.
func (r *Report) LiftLine() string {
	lift, ok := r.Lift()
	if !ok {
		return r.Message(stats.ComponentLift)
	}
	return fmt.Sprintf("Lift/Drop of Variant %s compared to Variant %s: %s", r.Arms.Treatment, r.Arms.Control, FormatPercent(lift))
}

// WriteText prints the report for a terminal.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString("Sample Data:\n")
	writeSample(&b, r.Sample)
	b.WriteString("\n")

	if r.Conversion == nil {
		b.WriteString(r.Message(stats.ComponentConversion) + "\n")
	} else {
		writeConversion(&b, r.Conversion)
		b.WriteString("\n" + r.LiftLine() + "\n")
	}
	b.WriteString("\n")

	if c := r.ChiSquared; c != nil {
		b.WriteString("Chi-Squared Test Results:\n")
		fmt.Fprintf(&b, "Chi-Squared Statistic: %.4f\n", c.Statistic)
		fmt.Fprintf(&b, "P-value: %.4f\n", c.PValue)
		fmt.Fprintf(&b, "Degrees of Freedom: %d\n", c.DegreesOfFreedom)
		b.WriteString(c.Interpretation() + "\n")
	} else {
		b.WriteString(r.Message(stats.ComponentChiSquared) + "\n")
	}
	b.WriteString("\n")

	if p := r.Posterior; p != nil {
		b.WriteString("Posterior Distribution of Conversion Rates:\n")
		for _, c := range p.Curves {
			fmt.Fprintf(&b, "  %-24s mean %s\n", c.Label(), FormatPercent(c.Mean()))
		}
		fmt.Fprintf(&b, "Probability %s beats %s: %.1f%%\n", r.Arms.Treatment, r.Arms.Control, p.ProbTreatmentBeats*100)
	} else {
		b.WriteString(r.Message(stats.ComponentPosterior) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSample(b *strings.Builder, sample *dataset.Dataset) {
	if sample.Empty() {
		b.WriteString("(no rows)\n")
		return
	}

	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	cols := sample.Columns()
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for i := 0; i < sample.Len(); i++ {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = Cell(sample.Value(i, c))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func writeConversion(b *strings.Builder, c *stats.Conversion) {
	b.WriteString("GROUP             COUNT    CONVERSIONS  RATE     95% CI\n")
	b.WriteString(strings.Repeat("─", 60) + "\n")

	for _, rec := range c.Records {
		name := rec.Group
		if len(name) > 16 {
			name = name[:13] + "..."
		}
		fmt.Fprintf(b, "%-16s  %-7d  %-11d  %-7s  [%.1f%%, %.1f%%]\n",
			name, rec.Count, rec.Successes, FormatPercent(rec.Rate), rec.CILower*100, rec.CIUpper*100)
	}
}

// Cell renders a dataset value for a table cell.
func Cell(v any) string {
	if dataset.IsNull(v) {
		return "None"
	}
	return dataset.Label(v)
}
