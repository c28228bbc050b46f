package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"
)

type idempotencyRepository struct {
	db querier
}

func NewIdempotencyRepository(db querier) repository.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	k := &domain.IdempotencyKey{}
	query := `SELECT key, order_id, fingerprint, batch_id, created_on FROM idempotency_keys WHERE key = $1`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&k.Key, &k.OrderID, &k.Fingerprint, &k.BatchID, &k.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, k *domain.IdempotencyKey) error {
	if k.CreatedOn.IsZero() {
		k.CreatedOn = time.Now().UTC()
	}
	query := `INSERT INTO idempotency_keys (key, order_id, fingerprint, batch_id, created_on) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, k.Key, k.OrderID, k.Fingerprint, k.BatchID, k.CreatedOn)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrIdempotencyKeyReused, k.Key)
	}
	return err
}

func (r *idempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE created_on < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
