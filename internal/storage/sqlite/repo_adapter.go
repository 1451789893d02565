package sqlite

import (
	"context"

	"schemagen/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	return NewRepository(ctx, cfg)
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
