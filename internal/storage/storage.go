// Package storage opens the configured storage backend and loads the seed catalog.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/repository/memory"
	"rentdesk-backend/internal/repository/postgres"
)

// Open connects to the backend named by cfg.Database.Driver, runs migrations when asked
// and seeds an empty catalog.
func Open(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var store repository.Store

	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Info("Using in-memory store")
		store = memory.NewStore()

	case config.DriverPostgres:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")

		if cfg.Database.RunMigrations {
			if err := postgres.Migrate(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		store = postgres.NewStore(db)

	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
	}

	if err := Seed(ctx, store.Repositories().Products, cfg.Seed.Products); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// Seed creates the configured products when the catalog is empty. An existing catalog is
// left untouched so restarts do not duplicate products.
func Seed(ctx context.Context, products repository.ProductRepository, seed []config.SeedProduct) error {
	if len(seed) == 0 {
		return nil
	}
	existing, err := products.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("Catalog already populated, skipping seed", "products", len(existing))
		return nil
	}

	for _, sp := range seed {
		p, err := newProduct(sp)
		if err != nil {
			return err
		}
		if err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", sp.Name, err)
		}
	}
	logger.Info("Seeded product catalog", "products", len(seed))
	return nil
}

func newProduct(sp config.SeedProduct) (*domain.Product, error) {
	price, err := decimal.NewFromString(sp.PricePerUnit)
	if err != nil {
		return nil, fmt.Errorf("seed product %q: invalid price: %w", sp.Name, err)
	}
	weight := decimal.Zero
	if sp.Weight != "" {
		if weight, err = decimal.NewFromString(sp.Weight); err != nil {
			return nil, fmt.Errorf("seed product %q: invalid weight: %w", sp.Name, err)
		}
	}
	return &domain.Product{
		Name:           sp.Name,
		Size:           sp.Size,
		PricePerUnit:   price,
		Weight:         weight,
		AvailableCount: sp.AvailableCount,
	}, nil
}
