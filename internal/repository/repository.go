package repository

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int32) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// InventoryLedger owns Product.AvailableCount. Allocate and Release are the only paths
// that change it, and both are linearizable per product.
type InventoryLedger interface {
	// Allocate takes every line out of stock or none of them. It fails with
	// *domain.InsufficientStockError when a line exceeds the available count.
	Allocate(ctx context.Context, lines []domain.StockLine) error
	// Release puts units back into stock.
	Release(ctx context.Context, lines []domain.StockLine) error
}

type OrderRepository interface {
	// Create inserts the order with its items and fills in the generated ids.
	Create(ctx context.Context, order *domain.RentalOrder) error
	GetByID(ctx context.Context, id int32) (*domain.RentalOrder, error)
	// GetForUpdate loads the order and holds it locked until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.RentalOrder, error)
	// UpdateProgress persists returned quantities, status and returnedAt.
	UpdateProgress(ctx context.Context, order *domain.RentalOrder) error
	UpdateStartTime(ctx context.Context, orderID int32, startTime time.Time) error
	CreateStartTimeCorrection(ctx context.Context, correction *domain.StartTimeCorrection) error
	ListStartTimeCorrections(ctx context.Context, orderID int32) ([]domain.StartTimeCorrection, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.RentalOrder, int32, error)
	ListOpen(ctx context.Context) ([]domain.RentalOrder, error)
}

type ReturnRepository interface {
	// CreateBatch inserts the records of one return call and fills in their ids.
	CreateBatch(ctx context.Context, records []domain.ReturnRecord) error
	ListByOrder(ctx context.Context, orderID int32) ([]domain.ReturnRecord, error)
	ListByBatch(ctx context.Context, batchID string) ([]domain.ReturnRecord, error)
	// ListBetween returns records with from <= returnedAt < to, oldest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.ReturnRecord, error)
}

type IdempotencyRepository interface {
	// Get returns nil, nil when the key has not been seen.
	Get(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	// Create fails with domain.ErrIdempotencyKeyReused when the key already exists.
	Create(ctx context.Context, key *domain.IdempotencyKey) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repositories is the set of repositories bound to one unit of work.
type Repositories struct {
	Products    ProductRepository
	Inventory   InventoryLedger
	Orders      OrderRepository
	Returns     ReturnRepository
	Idempotency IdempotencyRepository
}

// Transactor runs fn inside a transaction. The repositories handed to fn share it; when fn
// returns an error every change made through them is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is what the services need from a storage backend.
type Store interface {
	Transactor
	Repositories() Repositories
	Ping(ctx context.Context) error
	Close() error
}
