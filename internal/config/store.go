package config

import (
	"context"
	"fmt"

	"github.com/rongwang/buildtrue-server/internal/repository"
)

// OpenRepository connects the configured document store. The returned close
// func releases the connection and is safe to call once.
func OpenRepository(ctx context.Context, cfg *Config) (repository.Repository, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := SetupDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresRepository(db), func() { db.Close() }, nil

	case "mongo":
		client, db, err := SetupMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case "memory":
		return repository.NewMemoryRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}
}
