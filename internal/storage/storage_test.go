package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk-backend/internal/config"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Seed: config.SeedConfig{Products: []config.SeedProduct{
			{Name: "Steel plate", Size: "3x2", PricePerUnit: "12.50", Weight: "18", AvailableCount: 400},
			{Name: "Prop jack", PricePerUnit: "4", AvailableCount: 250},
		}},
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	products, err := store.Repositories().Products.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Prop jack", products[0].Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(products[1].PricePerUnit))
	assert.Equal(t, int32(400), products[1].AvailableCount)

	// a second seed does not duplicate the catalog
	require.NoError(t, Seed(ctx, store.Repositories().Products, cfg.Seed.Products))
	products, err = store.Repositories().Products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}

func TestNewProductInvalidWeight(t *testing.T) {
	_, err := newProduct(config.SeedProduct{Name: "x", PricePerUnit: "1", Weight: "heavy"})
	assert.Error(t, err)
}
