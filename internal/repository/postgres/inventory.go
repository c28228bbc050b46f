package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

// inventoryLedger changes available_count with single conditional UPDATE statements.
// The row lock taken by each UPDATE serializes concurrent allocate/release calls on the
// same product while other products stay independent. Lines are applied in ascending
// product id order so two transactions never wait on each other's rows in opposite order.
type inventoryLedger struct {
	db querier
}

func NewInventoryLedger(db querier) repository.InventoryLedger {
	return &inventoryLedger{db: db}
}

func (l *inventoryLedger) Allocate(ctx context.Context, lines []domain.StockLine) error {
	query := `UPDATE products SET available_count = available_count - $1, updated_on = NOW()
	          WHERE id = $2 AND available_count >= $1`

	for _, line := range domain.MergeStockLines(lines) {
		logger.DatabaseCall("allocate", "UPDATE products", "product_id", line.ProductID, "quantity", line.Quantity)
		res, err := l.db.ExecContext(ctx, query, line.Quantity, line.ProductID)
		if err != nil {
			logger.DatabaseResult("allocate", 0, err, "product_id", line.ProductID)
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		logger.DatabaseResult("allocate", n, nil, "product_id", line.ProductID)
		if n == 0 {
			return l.shortage(ctx, line)
		}
	}
	return nil
}

// shortage explains why a conditional allocation matched no row.
func (l *inventoryLedger) shortage(ctx context.Context, line domain.StockLine) error {
	var available int32
	err := l.db.QueryRowContext(ctx, `SELECT available_count FROM products WHERE id = $1`, line.ProductID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", domain.ErrProductNotFound, line.ProductID)
	}
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{
		ProductID: line.ProductID,
		Requested: line.Quantity,
		Available: available,
	}
}

func (l *inventoryLedger) Release(ctx context.Context, lines []domain.StockLine) error {
	query := `UPDATE products SET available_count = available_count + $1, updated_on = NOW() WHERE id = $2`

	for _, line := range domain.MergeStockLines(lines) {
		logger.DatabaseCall("release", "UPDATE products", "product_id", line.ProductID, "quantity", line.Quantity)
		res, err := l.db.ExecContext(ctx, query, line.Quantity, line.ProductID)
		if err != nil {
			logger.DatabaseResult("release", 0, err, "product_id", line.ProductID)
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		logger.DatabaseResult("release", n, nil, "product_id", line.ProductID)
		if n == 0 {
			return fmt.Errorf("%w: id %d", domain.ErrProductNotFound, line.ProductID)
		}
	}
	return nil
}
