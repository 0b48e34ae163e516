package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached query results",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached query result",
	RunE:  runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cached results older than the cache TTL",
	RunE:  runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		n, err := s.ClearCache(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached results\n", n)
		return nil
	})
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		n, err := s.PruneCache(context.Background(), time.Now().Add(-cfg.CacheTTL))
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired results (TTL %s)\n", n, cfg.CacheTTL)
		return nil
	})
}
