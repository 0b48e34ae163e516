package stats

import (
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gkobilansky/ab-goat/internal/dataset"
)

// Alpha is the significance threshold used to interpret a chi-squared test.
const Alpha = 0.05

// ChiSquared is a chi-squared test of independence between assignment group
// and conversion.
type ChiSquared struct {
	Groups   []string // table rows, first occurrence order
	Outcomes []bool   // table columns, converted first; empty outcomes dropped

	Observed [][]float64
	Expected [][]float64

	Statistic        float64
	PValue           float64
	DegreesOfFreedom int
	Corrected        bool // Yates' continuity correction applied
}

// ChiSquaredOptions tunes ChiSquaredTest.
type ChiSquaredOptions struct {
	// Correction applies Yates' continuity correction when the table has
	// one degree of freedom.
	Correction bool
}

// DefaultChiSquaredOptions enables the continuity correction.
func DefaultChiSquaredOptions() ChiSquaredOptions {
	return ChiSquaredOptions{Correction: true}
}

// Significant reports whether the p-value is below Alpha.
func (c *ChiSquared) Significant() bool {
	return c.PValue < Alpha
}

// Interpretation states the test's conclusion in plain language.
func (c *ChiSquared) Interpretation() string {
	if c.Significant() {
		return fmt.Sprintf("Since the p-value (%.4f) is less than alpha (%g), we reject the null hypothesis. There is a statistically significant difference in conversion rates between the variants.", c.PValue, Alpha)
	}
	return fmt.Sprintf("Since the p-value (%.4f) is greater than alpha (%g), we fail to reject the null hypothesis. There is no statistically significant difference in conversion rates between the variants.", c.PValue, Alpha)
}

// ChiSquaredTest runs the test with DefaultChiSquaredOptions.
func ChiSquaredTest(conv *dataset.Converted, assignmentCol string) (*ChiSquared, Reason) {
	return ChiSquaredTestWithOptions(conv, assignmentCol, DefaultChiSquaredOptions())
}

// ChiSquaredTestWithOptions builds the group by outcome contingency table
// from conv and computes Pearson's statistic, its p-value and the expected
// frequencies under independence.
func ChiSquaredTestWithOptions(conv *dataset.Converted, assignmentCol string, opts ChiSquaredOptions) (*ChiSquared, Reason) {
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
	if len(groups) == 0 {
		return nil, ReasonNoGroups
	}

	var converted, notConverted int
	for _, g := range groups {
		converted += g.successes
		notConverted += g.size - g.successes
	}

	var outcomes []bool
	if converted > 0 {
		outcomes = append(outcomes, true)
	}
	if notConverted > 0 {
		outcomes = append(outcomes, false)
	}

	observed := make([][]float64, len(groups))
	for i, g := range groups {
		row := make([]float64, 0, len(outcomes))
		for _, o := range outcomes {
			if o {
				row = append(row, float64(g.successes))
			} else {
				row = append(row, float64(g.size-g.successes))
			}
		}
		observed[i] = row
	}

	expected, grand := expectedFrequencies(observed)
	dof := (len(groups) - 1) * (len(outcomes) - 1)

	result := &ChiSquared{
		Groups:           groupLabels(groups),
		Outcomes:         outcomes,
		Observed:         observed,
		Expected:         expected,
		DegreesOfFreedom: dof,
	}

	if dof == 0 || grand == 0 {
		result.PValue = 1
		return result, ReasonNone
	}

	adjusted := observed
	if dof == 1 && opts.Correction {
		adjusted = yates(observed, expected)
		result.Corrected = true
	}

	for i := range adjusted {
		for j := range adjusted[i] {
			d := adjusted[i][j] - expected[i][j]
			result.Statistic += d * d / expected[i][j]
		}
	}

	result.PValue = distuv.ChiSquared{K: float64(dof)}.Survival(result.Statistic)
	return result, ReasonNone
}

// expectedFrequencies returns rowTotal[i]*colTotal[j]/grand for each cell
// along with the grand total.
func expectedFrequencies(observed [][]float64) ([][]float64, float64) {
	if len(observed) == 0 {
		return nil, 0
	}

	rowTotals := make([]float64, len(observed))
	colTotals := make([]float64, len(observed[0]))
	for i, row := range observed {
		rowTotals[i], _ = mstats.Sum(row)
		for j, v := range row {
			colTotals[j] += v
		}
	}
	grand, _ := mstats.Sum(rowTotals)

	expected := make([][]float64, len(observed))
	for i := range observed {
		expected[i] = make([]float64, len(colTotals))
		if grand == 0 {
			continue
		}
		for j := range colTotals {
			expected[i][j] = rowTotals[i] * colTotals[j] / grand
		}
	}

	return expected, grand
}

// yates moves every observed count up to half a unit towards its expected
// count.
func yates(observed, expected [][]float64) [][]float64 {
	out := make([][]float64, len(observed))
	for i := range observed {
		out[i] = make([]float64, len(observed[i]))
		for j := range observed[i] {
			diff := expected[i][j] - observed[i][j]
			step := math.Min(0.5, math.Abs(diff))
			if diff < 0 {
				step = -step
			}
			out[i][j] = observed[i][j] + step
		}
	}
	return out
}
