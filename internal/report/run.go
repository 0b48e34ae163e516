package report

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
	"github.com/gkobilansky/ab-goat/internal/warehouse"
)

var analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "abg",
	Name:      "analyses_total",
	Help:      "Analysis components computed, by component and outcome (present or the absence reason).",
}, []string{"component", "outcome"})

// Query runs sql through runner and analyses the result set.
func Query(ctx context.Context, runner warehouse.Runner, sql string, sel stats.Selection, arms stats.Arms) (*Report, error) {
	ds, err := runner.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}

	return Analyze(ds, sel, arms), nil
}

// Analyze builds the report for ds and records its outcome metrics.
func Analyze(ds *dataset.Dataset, sel stats.Selection, arms stats.Arms) *Report {
	r := Build(ds, sel, arms)
	r.observe()
	return r
}

func (r *Report) observe() {
	for _, c := range Components() {
		outcome := "present"
		if reason := r.Reason(c); reason != stats.ReasonNone {
			outcome = string(reason)
		}
		analysesTotal.WithLabelValues(string(c), outcome).Inc()
	}
}

// Run converts the report into a run record for the history table.
func (r *Report) Run(query string) *store.Run {
	run := &store.Run{
		Query:      query,
		Event1:     r.Selection.Event1,
		Event2:     r.Selection.Event2,
		Assignment: r.Selection.Assignment,
		Rows:       r.Rows,
	}

	if lift, ok := r.Lift(); ok {
		run.Lift = &lift
	}
	if r.ChiSquared != nil {
		p := r.ChiSquared.PValue
		run.PValue = &p
	}
	if r.Conversion != nil {
		for _, rec := range r.Conversion.Records {
			run.Records = append(run.Records, store.RunRecord{
				Group:     rec.Group,
				Count:     rec.Count,
				Successes: rec.Successes,
				Rate:      rec.Rate,
			})
		}
	}
	return run
}

// Selection returns the column selection a saved run was made with.
func Selection(run *store.Run) stats.Selection {
	return stats.Selection{Event1: run.Event1, Event2: run.Event2, Assignment: run.Assignment}
}
