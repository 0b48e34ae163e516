package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/stats"
)

var analyzeSelection stats.Selection

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Analyse an experiment exported to CSV",
	Long: `Analyse a local CSV file instead of a warehouse query.

The first row names the columns. Empty cells are treated as missing
values, so a conversion column counts a row as converted when its cell is
non-empty. Runs from files are not saved to the history.

Example:
  abg analyze events.csv --event1 viewed --event2 purchased --assignment variant`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	addSelectionFlags(analyzeCmd, &analyzeSelection)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	ds, err := dataset.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	return analyzeAndPrint(cmd, nil, ds, analyzeSelection, "")
}
