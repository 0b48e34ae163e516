package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/report"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
)

var (
	querySQL       string
	querySQLFile   string
	querySelection stats.Selection
	saveRun        bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a warehouse query and analyse the experiment",
	Long: `Run a SQL query against BigQuery and print the analysis.

Column flags left out are asked for interactively when running in a
terminal. Results are cached by query text for the configured TTL and the
run is saved to the history.

Examples:
  abg query --sql "SELECT * FROM exp.events" --event1 viewed --event2 purchased --assignment variant
  abg query --sql-file experiment.sql`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&querySQL, "sql", "", "SQL query text")
	queryCmd.Flags().StringVar(&querySQLFile, "sql-file", "", "file containing the SQL query (- for stdin)")
	queryCmd.Flags().BoolVar(&saveRun, "save", true, "save the run to the history")
	addSelectionFlags(queryCmd, &querySelection)
	rootCmd.AddCommand(queryCmd)
}

// addSelectionFlags binds the column flags of cmd to sel. Each command owns
// its own selection.
func addSelectionFlags(cmd *cobra.Command, sel *stats.Selection) {
	cmd.Flags().StringVar(&sel.Event1, "event1", "", "event 1 column")
	cmd.Flags().StringVar(&sel.Event2, "event2", "", "event 2 (conversion) column")
	cmd.Flags().StringVar(&sel.Assignment, "assignment", "", "assignment column")
}

func runQuery(cmd *cobra.Command, args []string) error {
	sql, err := readQuery(cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		runner, closeRunner, err := newRunner(ctx, s)
		if err != nil {
			return err
		}
		defer closeRunner()

		ds, err := runner.Query(ctx, sql)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		return analyzeAndPrint(cmd, s, ds, querySelection, sql)
	})
}

// analyzeAndPrint completes the column selection, prints the report and,
// when s is non-nil, saves the run.
func analyzeAndPrint(cmd *cobra.Command, s *store.SQLiteStore, ds *dataset.Dataset, flags stats.Selection, sql string) error {
	sel, err := completeSelection(flags, ds)
	if err != nil {
		return err
	}

	rep := report.Analyze(ds, sel, cfg.Arms.Stats())

	out := cmd.OutOrStdout()
	if err := report.WriteText(out, rep); err != nil {
		return err
	}

	if s == nil || !saveRun {
		return nil
	}

	run := rep.Run(sql)
	if err := s.CreateRun(context.Background(), run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	fmt.Fprintf(out, "\nSaved run %s\n", run.ID)
	return nil
}

func readQuery(stdin io.Reader) (string, error) {
	if querySQL != "" && querySQLFile != "" {
		return "", errors.New("use either --sql or --sql-file, not both")
	}

	sql := querySQL
	switch querySQLFile {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		sql = string(data)
	default:
		data, err := os.ReadFile(querySQLFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		sql = string(data)
	}

	if strings.TrimSpace(sql) == "" {
		return "", errors.New("please enter a query")
	}
	return sql, nil
}
