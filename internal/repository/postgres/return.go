package postgres

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"

	sq "github.com/Masterminds/squirrel"
)

type returnRepository struct {
	db querier
}

func NewReturnRepository(db querier) repository.ReturnRepository {
	return &returnRepository{db: db}
}

var returnColumns = []string{
	"id", "batch_id", "order_id", "order_item_id", "product_id", "return_quantity",
	"returned_at", "elapsed_hours", "billing_multiplier", "return_amount",
}

// Records are written once and never updated.
func (r *returnRepository) CreateBatch(ctx context.Context, records []domain.ReturnRecord) error {
	query := `INSERT INTO return_records (batch_id, order_id, order_item_id, product_id, return_quantity,
	          returned_at, elapsed_hours, billing_multiplier, return_amount)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	for i := range records {
		rec := &records[i]
		err := r.db.QueryRowContext(ctx, query,
			rec.BatchID, rec.OrderID, rec.OrderItemID, rec.ProductID, rec.ReturnQuantity,
			rec.ReturnedAt, rec.ElapsedHours, rec.BillingMultiplier, rec.ReturnAmount,
		).Scan(&rec.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *returnRepository) ListByOrder(ctx context.Context, orderID int32) ([]domain.ReturnRecord, error) {
	return r.list(ctx, psql.Select(returnColumns...).From("return_records").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("returned_at", "id"))
}

func (r *returnRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.ReturnRecord, error) {
	return r.list(ctx, psql.Select(returnColumns...).From("return_records").
		Where(sq.Eq{"batch_id": batchID}).
		OrderBy("id"))
}

func (r *returnRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.ReturnRecord, error) {
	return r.list(ctx, psql.Select(returnColumns...).From("return_records").
		Where(sq.GtOrEq{"returned_at": from}).
		Where(sq.Lt{"returned_at": to}).
		OrderBy("returned_at", "id"))
}

func (r *returnRepository) list(ctx context.Context, b sq.SelectBuilder) ([]domain.ReturnRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ReturnRecord
	for rows.Next() {
		var rec domain.ReturnRecord
		if err := rows.Scan(&rec.ID, &rec.BatchID, &rec.OrderID, &rec.OrderItemID, &rec.ProductID, &rec.ReturnQuantity,
			&rec.ReturnedAt, &rec.ElapsedHours, &rec.BillingMultiplier, &rec.ReturnAmount); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
