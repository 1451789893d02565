package mysql

import (
	"context"

	"schemagen/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	return NewRepository(ctx, cfg)
}

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
