package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a saved run's per-group results",
	Long: `Export the per-group conversion figures of a saved run in CSV or JSON format.

Examples:
  abg export 3f2a... --format csv > results.csv
  abg export 3f2a... --format json > results.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	id := args[0]

	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	return withStore(func(s *store.SQLiteStore) error {
		run, err := s.GetRun(context.Background(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run '%s' not found", id)
			}
			return fmt.Errorf("failed to get run: %w", err)
		}

		if exportFormat == "csv" {
			return exportCSV(cmd.OutOrStdout(), run)
		}
		return exportJSON(cmd.OutOrStdout(), run)
	})
}

func exportCSV(out io.Writer, run *store.Run) error {
	w := csv.NewWriter(out)

	// Write header
	if err := w.Write([]string{"group", "count", "conversions", "rate"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Write rows
	for _, rec := range run.Records {
		row := []string{
			rec.Group,
			strconv.Itoa(rec.Count),
			strconv.Itoa(rec.Successes),
			strconv.FormatFloat(rec.Rate, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

type jsonExport struct {
	ID         string            `json:"id"`
	Query      string            `json:"query"`
	Event1     string            `json:"event1"`
	Event2     string            `json:"event2"`
	Assignment string            `json:"assignment"`
	Rows       int               `json:"rows"`
	Lift       *float64          `json:"lift"`
	PValue     *float64          `json:"p_value"`
	CreatedAt  string            `json:"created_at"`
	Records    []store.RunRecord `json:"records"`
}

func exportJSON(out io.Writer, run *store.Run) error {
	export := jsonExport{
		ID:         run.ID,
		Query:      run.Query,
		Event1:     run.Event1,
		Event2:     run.Event2,
		Assignment: run.Assignment,
		Rows:       run.Rows,
		Lift:       run.Lift,
		PValue:     run.PValue,
		CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339),
		Records:    run.Records,
	}
	if export.Records == nil {
		export.Records = []store.RunRecord{}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
