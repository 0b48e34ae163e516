package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
	"github.com/gkobilansky/ab-goat/internal/warehouse"
)

var errNoWarehouse = errors.New("no BigQuery project configured (set ABG_PROJECT or warehouse.project_id)")

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// newRunner connects to BigQuery and puts the query cache in front of it.
// The returned close function releases the client.
func newRunner(ctx context.Context, s *store.SQLiteStore) (warehouse.Runner, func() error, error) {
	if !cfg.HasWarehouse() {
		return nil, nil, errNoWarehouse
	}

	bq, err := warehouse.NewBigQuery(ctx, warehouse.BigQueryOptions{
		ProjectID:       cfg.Warehouse.ProjectID,
		Location:        cfg.Warehouse.Location,
		CredentialsFile: cfg.Warehouse.CredentialsFile,
		CredentialsJSON: cfg.Warehouse.CredentialsJSON,
	})
	if err != nil {
		return nil, nil, err
	}

	runner := warehouse.NewCached(bq, s, cfg.CacheTTL, warehouse.WithLogger(logger))
	return runner, bq.Close, nil
}

// getTokenFilePath returns the path to the token file
func getTokenFilePath() string {
	// Store token file alongside the database
	dir := filepath.Dir(cfg.DBPath)
	return filepath.Join(dir, ".abg-token")
}

func interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// completeSelection asks for any column the flags left empty when stdin is
// a terminal. Otherwise missing columns stay empty and the report explains
// what could not be computed.
func completeSelection(sel stats.Selection, ds *dataset.Dataset) (stats.Selection, error) {
	if !interactive() || ds.Empty() {
		return sel, nil
	}

	fields := []struct {
		label string
		dst   *string
	}{
		{"Select Event 1 Column", &sel.Event1},
		{"Select Event 2 Column", &sel.Event2},
		{"Select Assignment Column", &sel.Assignment},
	}

	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		col, err := promptColumn(f.label, ds.Columns())
		if err != nil {
			return sel, err
		}
		*f.dst = col
	}
	return sel, nil
}

func promptColumn(label string, columns []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: columns,
		Size:  10,
	}

	_, col, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}
	return col, nil
}
