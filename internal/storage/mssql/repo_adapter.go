package mssql

import (
	"context"

	"schemagen/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	return NewRepository(ctx, cfg)
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
