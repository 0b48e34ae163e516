package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/server"
	"github.com/gkobilansky/ab-goat/internal/store"
	"github.com/gkobilansky/ab-goat/internal/warehouse"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the ab-goat HTTP server.

The server provides:
  - Dashboard for running queries and reading results
  - JSON API at /api/analyze
  - Prometheus metrics at /metrics
  - Health check endpoint

Example:
  abg serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (default from config)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		runner, closeRunner, err := newRunner(ctx, s)
		if err != nil {
			// Serve anyway so the dashboard explains what is missing
			logger.Warn("warehouse unavailable, queries will fail", "error", err)
			unavailable := err
			runner = warehouse.RunnerFunc(func(context.Context, string) (*dataset.Dataset, error) {
				return nil, unavailable
			})
		} else {
			defer closeRunner()
		}

		srv := server.New(s, runner, server.Options{
			Port:      cfg.Port,
			TokenFile: getTokenFilePath(),
			Arms:      cfg.Arms.Stats(),
			Logger:    logger,
		})

		if cfg.HasWarehouse() {
			fmt.Fprintf(cmd.OutOrStdout(), "BigQuery project: %s\n", cfg.Warehouse.ProjectID)
		}
		return srv.Start()
	})
}
