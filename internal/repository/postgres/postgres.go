package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories work inside and
// outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func newRepositories(q querier) repository.Repositories {
	return repository.Repositories{
		Products:    NewProductRepository(q),
		Inventory:   NewInventoryLedger(q),
		Orders:      NewOrderRepository(q),
		Returns:     NewReturnRepository(q),
		Idempotency: NewIdempotencyRepository(q),
	}
}

// Repositories returns repositories that run each statement on its own.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.db)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// notFound turns sql.ErrNoRows into the given domain sentinel.
func notFound(err error, sentinel error, id int32) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", sentinel, id)
	}
	return err
}

var _ repository.Store = (*Store)(nil)
