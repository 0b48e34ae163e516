package report_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/report"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
	"github.com/gkobilansky/ab-goat/internal/warehouse"
)

var sel = stats.Selection{Event1: "seen", Event2: "bought", Assignment: "arm"}

func build(rows ...dataset.Record) *report.Report {
	ds := dataset.New([]string{"seen", "bought", "arm"}, rows)
	return report.Build(ds, sel, stats.DefaultArms())
}

func fourRows() *report.Report {
	return build(
		dataset.Record{"seen": "t", "bought": nil, "arm": "A"},
		dataset.Record{"seen": "t", "bought": "x", "arm": "A"},
		dataset.Record{"seen": "t", "bought": nil, "arm": "B"},
		dataset.Record{"seen": "t", "bought": "y", "arm": "B"},
	)
}

func TestBuild_AllPresent(t *testing.T) {
	r := fourRows()

	require.NotNil(t, r.Conversion)
	require.NotNil(t, r.ChiSquared)
	require.NotNil(t, r.Posterior)
	assert.Equal(t, 4, r.Rows)

	lift, ok := r.Lift()
	assert.True(t, ok)
	assert.Zero(t, lift)

	for _, c := range report.Components() {
		assert.Empty(t, r.Message(c), "component %s should be present", c)
	}
}

func TestBuild_EmptyDataset(t *testing.T) {
	r := build()

	assert.Nil(t, r.Conversion)
	assert.Nil(t, r.ChiSquared)
	assert.Nil(t, r.Posterior)
	assert.Equal(t, stats.ReasonEmptyDataset, r.ConversionReason)
	assert.Equal(t, stats.ReasonNotConverted, r.ChiSquaredReason)

	assert.Equal(t, "There was a problem with one of your column selections, or there is not both A and B assignments in your data", r.Message(stats.ComponentConversion))
	assert.Equal(t, "There was a problem with your column selections, could not perform chi-squared test", r.Message(stats.ComponentChiSquared))
	assert.Equal(t, "Could not create posterior distribution chart. Ensure there are exactly two assignments named A and B", r.Message(stats.ComponentPosterior))
}

func TestBuild_OnlyControl(t *testing.T) {
	r := build(
		dataset.Record{"seen": "t", "bought": nil, "arm": "A"},
		dataset.Record{"seen": "t", "bought": "x", "arm": "A"},
	)

	require.NotNil(t, r.Conversion)
	assert.Len(t, r.Conversion.Records, 1)
	assert.NotNil(t, r.ChiSquared)
	assert.Nil(t, r.Posterior)
	assert.Equal(t, "Could not calculate lift/drop, ensure you have a proper assignment column with values A and B", r.LiftLine())
}

func TestBuild_ConfiguredArms(t *testing.T) {
	ds := dataset.New([]string{"seen", "bought", "arm"}, []dataset.Record{
		{"seen": "t", "bought": "x", "arm": "ctl"},
		{"seen": "t", "bought": nil, "arm": "exp"},
	})
	arms := stats.Arms{Control: "ctl", Treatment: "exp"}

	r := report.Build(ds, sel, arms)

	require.NotNil(t, r.Posterior)
	assert.Equal(t, "Lift/Drop of Variant exp compared to Variant ctl: -100.00%", r.LiftLine())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, fourRows()))
	out := buf.String()

	for _, want := range []string{
		"Sample Data:",
		"seen  bought  arm",
		"None",
		"50.00%",
		"Lift/Drop of Variant B compared to Variant A: 0.00%",
		"Chi-Squared Statistic: 0.0000",
		"P-value: 1.0000",
		"Degrees of Freedom: 1",
		"we fail to reject the null hypothesis",
		"A (a=2, b=2)",
		"Probability B beats A: 50.0%",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteText_Absent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, build()))
	out := buf.String()

	assert.Contains(t, out, "(no rows)")
	assert.Contains(t, out, "could not perform chi-squared test")
	assert.Contains(t, out, "Could not create posterior distribution chart")
	assert.False(t, strings.Contains(out, "Lift/Drop"))
}

func TestBars(t *testing.T) {
	chart := report.Bars(fourRows())

	require.NotNil(t, chart)
	assert.Equal(t, "Conversion Rate by Assignment", chart.Title)
	require.Len(t, chart.Bars, 2)
	assert.Equal(t, "A", chart.Bars[0].Label)
	assert.Equal(t, 50.0, chart.Bars[0].Width)
	assert.Equal(t, "50.00%", chart.Bars[0].Text)

	assert.Nil(t, report.Bars(build()))
}

func TestPosteriorChart(t *testing.T) {
	chart := report.PosteriorChart(fourRows(), 640, 360)

	require.NotNil(t, chart)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "A (a=2, b=2)", chart.Series[0].Label)
	assert.Len(t, strings.Fields(chart.Series[0].Points), stats.GridPoints)
	assert.Len(t, chart.XTicks, 6)
	assert.Equal(t, "1.0", chart.XTicks[5].Label)
	assert.Greater(t, chart.YMax, 1.5)

	assert.Nil(t, report.PosteriorChart(build(), 640, 360))
}

func TestCell(t *testing.T) {
	assert.Equal(t, "None", report.Cell(nil))
	assert.Equal(t, "x", report.Cell("x"))
}

func TestRun(t *testing.T) {
	run := fourRows().Run("SELECT * FROM t")

	assert.Equal(t, "SELECT * FROM t", run.Query)
	assert.Equal(t, "seen", run.Event1)
	assert.Equal(t, "bought", run.Event2)
	assert.Equal(t, "arm", run.Assignment)
	assert.Equal(t, 4, run.Rows)
	require.NotNil(t, run.Lift)
	assert.Zero(t, *run.Lift)
	require.NotNil(t, run.PValue)
	assert.InDelta(t, 1.0, *run.PValue, 1e-9)
	assert.Equal(t, []store.RunRecord{
		{Group: "A", Count: 2, Successes: 1, Rate: 0.5},
		{Group: "B", Count: 2, Successes: 1, Rate: 0.5},
	}, run.Records)

	assert.Equal(t, sel, report.Selection(run))
}

func TestRun_Absent(t *testing.T) {
	run := build().Run("SELECT 1")

	assert.Nil(t, run.Lift)
	assert.Nil(t, run.PValue)
	assert.Empty(t, run.Records)
}

func TestQuery(t *testing.T) {
	var got string
	runner := warehouse.RunnerFunc(func(ctx context.Context, sql string) (*dataset.Dataset, error) {
		got = sql
		return fourRows().Sample, nil
	})

	r, err := report.Query(context.Background(), runner, "SELECT * FROM t", sel, stats.DefaultArms())
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM t", got)
	assert.NotNil(t, r.Posterior)
}

func TestQuery_Error(t *testing.T) {
	boom := errors.New("boom")
	runner := warehouse.RunnerFunc(func(ctx context.Context, sql string) (*dataset.Dataset, error) {
		return nil, boom
	})

	_, err := report.Query(context.Background(), runner, "SELECT 1", sel, stats.DefaultArms())
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "running query: boom")
}
