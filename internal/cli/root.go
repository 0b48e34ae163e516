package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/config"
)

var (
	dbPath     string
	configPath string

	cfg    = config.Default()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "abg",
	Short: "ab-goat - A/B test analysis over your data warehouse",
	Long: `🐐 ab-goat analyses A/B experiments straight from your data warehouse.
Run a SQL query, pick the assignment and conversion columns, and get
conversion rates, lift, a chi-squared test and Bayesian posteriors.

Running without a subcommand starts the dashboard (same as 'abg serve').`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe, // Default action is to start server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default from config, ./abg.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if dbPath != "" {
		loaded.DBPath = dbPath
	}
	if cmd.Flags().Changed("port") {
		loaded.Port = port
	}

	cfg = loaded
	logger = cfg.Logger()
	slog.SetDefault(logger)
	return nil
}
