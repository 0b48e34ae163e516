package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/report"
	"github.com/gkobilansky/ab-goat/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved analysis runs",
	Long:  `List saved analysis runs, newest first.`,
	RunE:  runRuns,
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a saved run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsRm,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to show (0 for all)")
	runsCmd.AddCommand(runsRmCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		runs, err := s.ListRuns(context.Background(), runsLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs yet.")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Analyse an experiment with:")
			fmt.Fprintln(out, "  abg query --sql \"SELECT ...\"")
			return nil
		}

		// Print table
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tASSIGNMENT\tROWS\tLIFT\tP-VALUE\tQUERY")

		for _, run := range runs {
			lift := "-"
			if run.Lift != nil {
				lift = report.FormatPercent(*run.Lift)
			}
			pValue := "-"
			if run.PValue != nil {
				pValue = fmt.Sprintf("%.4f", *run.PValue)
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				run.ID,
				run.CreatedAt.Format("2006-01-02 15:04"),
				orDash(run.Assignment),
				formatNumber(run.Rows),
				lift,
				pValue,
				truncate(oneLine(run.Query), 40),
			)
		}

		return w.Flush()
	})
}

func runRunsRm(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		err := s.DeleteRun(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("run '%s' not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
		return nil
	})
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
