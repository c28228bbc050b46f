package postgres

import (
	"context"
	"fmt"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type orderRepository struct {
	db querier
}

func NewOrderRepository(db querier) repository.OrderRepository {
	return &orderRepository{db: db}
}

var orderColumns = []string{"id", "customer_id", "start_time", "advance_payment", "status", "returned_at", "created_on", "updated_on"}

const itemColumns = `id, order_id, product_id, price_per_unit, total_quantity, returned_quantity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.RentalOrder, error) {
	o := &domain.RentalOrder{}
	if err := row.Scan(&o.ID, &o.CustomerID, &o.StartTime, &o.AdvancePayment, &o.Status, &o.ReturnedAt, &o.CreatedOn, &o.UpdatedOn); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *domain.RentalOrder) error {
	now := time.Now().UTC()
	query := `INSERT INTO rental_orders (customer_id, start_time, advance_payment, status, returned_at, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, o.CustomerID, o.StartTime, o.AdvancePayment, o.Status, o.ReturnedAt, now, now).Scan(&o.ID); err != nil {
		return err
	}
	o.CreatedOn, o.UpdatedOn = now, now

	itemQuery := `INSERT INTO order_items (order_id, product_id, price_per_unit, total_quantity, returned_quantity)
	              VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := r.db.QueryRowContext(ctx, itemQuery, it.OrderID, it.ProductID, it.PricePerUnit, it.TotalQuantity, it.ReturnedQuantity).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.RentalOrder, error) {
	return r.get(ctx, id, false)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int32) (*domain.RentalOrder, error) {
	return r.get(ctx, id, true)
}

func (r *orderRepository) get(ctx context.Context, id int32, forUpdate bool) (*domain.RentalOrder, error) {
	q := psql.Select(orderColumns...).From("rental_orders").Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, domain.ErrOrderNotFound, id)
	}

	itemQuery := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`
	if forUpdate {
		itemQuery += ` FOR UPDATE`
	}
	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.PricePerUnit, &it.TotalQuantity, &it.ReturnedQuantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *orderRepository) UpdateProgress(ctx context.Context, o *domain.RentalOrder) error {
	itemQuery := `UPDATE order_items SET returned_quantity = $1 WHERE id = $2 AND order_id = $3`
	for _, it := range o.Items {
		if _, err := r.db.ExecContext(ctx, itemQuery, it.ReturnedQuantity, it.ID, o.ID); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	query := `UPDATE rental_orders SET status = $1, returned_at = $2, updated_on = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, o.Status, o.ReturnedAt, now, o.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, o.ID)
	}
	o.UpdatedOn = now
	return nil
}

func (r *orderRepository) UpdateStartTime(ctx context.Context, orderID int32, startTime time.Time) error {
	query := `UPDATE rental_orders SET start_time = $1, updated_on = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, startTime, time.Now().UTC(), orderID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, orderID)
	}
	return nil
}

func (r *orderRepository) CreateStartTimeCorrection(ctx context.Context, c *domain.StartTimeCorrection) error {
	query := `INSERT INTO start_time_corrections (order_id, old_start_time, new_start_time, reason, corrected_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if c.CorrectedOn.IsZero() {
		c.CorrectedOn = time.Now().UTC()
	}
	return r.db.QueryRowContext(ctx, query, c.OrderID, c.OldStartTime, c.NewStartTime, c.Reason, c.CorrectedOn).Scan(&c.ID)
}

func (r *orderRepository) ListStartTimeCorrections(ctx context.Context, orderID int32) ([]domain.StartTimeCorrection, error) {
	query := `SELECT id, order_id, old_start_time, new_start_time, reason, corrected_on
	          FROM start_time_corrections WHERE order_id = $1 ORDER BY corrected_on, id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrections []domain.StartTimeCorrection
	for rows.Next() {
		var c domain.StartTimeCorrection
		if err := rows.Scan(&c.ID, &c.OrderID, &c.OldStartTime, &c.NewStartTime, &c.Reason, &c.CorrectedOn); err != nil {
			return nil, err
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.RentalOrder, int32, error) {
	filter.Normalize()

	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.CustomerID != 0 {
		where = append(where, sq.Eq{"customer_id": filter.CustomerID})
	}

	countQuery, countArgs, err := psql.Select("count(*)").From("rental_orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var count int32
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query, args, err := psql.Select(orderColumns...).From("rental_orders").Where(where).
		OrderBy("created_on DESC", "id DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (r *orderRepository) ListOpen(ctx context.Context) ([]domain.RentalOrder, error) {
	query, args, err := psql.Select(orderColumns...).From("rental_orders").
		Where(sq.NotEq{"status": domain.OrderStatusReturned}).
		OrderBy("start_time", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryOrders(ctx, query, args...)
}

// queryOrders runs an order query and attaches the items of every returned order with
// one extra round trip.
func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.RentalOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.RentalOrder
	index := make(map[int32]int)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		index[o.ID] = len(orders)
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int32, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemRows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it domain.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.PricePerUnit, &it.TotalQuantity, &it.ReturnedQuantity); err != nil {
			return nil, err
		}
		if idx, ok := index[it.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, it)
		}
	}
	return orders, itemRows.Err()
}
