package store

import (
	"context"
	"time"
)

// Store defines the interface for cache and run history operations
type Store interface {
	// Query cache
	GetCachedResult(ctx context.Context, key string) (*CachedResult, error)
	PutCachedResult(ctx context.Context, key, query string, payload []byte) error
	PruneCache(ctx context.Context, olderThan time.Time) (int64, error)
	ClearCache(ctx context.Context) (int64, error)

	// Run history
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error
	CountRuns(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}
