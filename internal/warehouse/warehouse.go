package warehouse

import (
	"context"
	"errors"

	"github.com/gkobilansky/ab-goat/internal/dataset"
)

// ErrEmptyQuery is returned for a blank query text.
var ErrEmptyQuery = errors.New("query is empty")

// Runner executes a SQL query and materialises the full result set.
type Runner interface {
	Query(ctx context.Context, sql string) (*dataset.Dataset, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, sql string) (*dataset.Dataset, error)

func (f RunnerFunc) Query(ctx context.Context, sql string) (*dataset.Dataset, error) {
	return f(ctx, sql)
}
