package cmd

import (
	"errors"
	"fmt"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database/postgres"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
)

// openStore connects to PostgreSQL and runs pending migrations.
// The caller owns the returned store and must Close it.
func openStore(cfg *config.Config) (*postgres.Store, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	store, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return store, nil
}

// openIdentity connects to the store and wraps it in an identity service.
func openIdentity(cfg *config.Config) (*identity.Service, *postgres.Store, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return identity.New(store, cfg.Clustering, cfg.Database.HNSWIndexPath), store, nil
}
