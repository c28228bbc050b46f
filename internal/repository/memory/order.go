package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentdesk-backend/internal/domain"
)

type orderRepository struct {
	s *Store
	t *tx
}

func (r *orderRepository) Create(ctx context.Context, o *domain.RentalOrder) error {
	return run(r.s, r.t, func(t *tx) error {
		r.s.mu.Lock()
		r.s.lastOrderID++
		id := r.s.lastOrderID
		r.s.mu.Unlock()

		t.lock(rowKey{orderTable, id})

		now := time.Now().UTC()
		t.write(func() {
			o.ID = id
			o.CreatedOn, o.UpdatedOn = now, now
			for i := range o.Items {
				r.s.lastItemID++
				o.Items[i].ID = r.s.lastItemID
				o.Items[i].OrderID = id
			}
			r.s.orders[id] = o.Clone()
		}, func() {
			delete(r.s.orders, id)
		})
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.RentalOrder, error) {
	var out *domain.RentalOrder
	err := run(r.s, r.t, func(t *tx) error {
		out = r.snapshot(t, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	return out, nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int32) (*domain.RentalOrder, error) {
	var out *domain.RentalOrder
	err := run(r.s, r.t, func(t *tx) error {
		t.lock(rowKey{orderTable, id})
		out = r.snapshot(t, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	return out, nil
}

func (r *orderRepository) snapshot(t *tx, id int32) *domain.RentalOrder {
	var out *domain.RentalOrder
	t.read(rowKey{orderTable, id}, func() {
		if o, ok := r.s.orders[id]; ok {
			out = o.Clone()
		}
	})
	return out
}

// replace stores a mutated copy of the order and journals the previous version.
func (r *orderRepository) replace(t *tx, id int32, mutate func(o *domain.RentalOrder)) error {
	t.lock(rowKey{orderTable, id})

	var prev *domain.RentalOrder
	t.write(func() {
		cur, ok := r.s.orders[id]
		if !ok {
			return
		}
		prev = cur
		next := cur.Clone()
		mutate(next)
		next.UpdatedOn = time.Now().UTC()
		r.s.orders[id] = next
	}, nil)
	if prev == nil {
		return fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}

	t.undo = append(t.undo, func() { r.s.orders[id] = prev })
	return nil
}

func (r *orderRepository) UpdateProgress(ctx context.Context, o *domain.RentalOrder) error {
	return run(r.s, r.t, func(t *tx) error {
		return r.replace(t, o.ID, func(next *domain.RentalOrder) {
			for i := range next.Items {
				if it, ok := o.Item(next.Items[i].ID); ok {
					next.Items[i].ReturnedQuantity = it.ReturnedQuantity
				}
			}
			next.Status = o.Status
			if o.ReturnedAt != nil {
				at := *o.ReturnedAt
				next.ReturnedAt = &at
			} else {
				next.ReturnedAt = nil
			}
		})
	})
}

func (r *orderRepository) UpdateStartTime(ctx context.Context, orderID int32, startTime time.Time) error {
	return run(r.s, r.t, func(t *tx) error {
		return r.replace(t, orderID, func(next *domain.RentalOrder) {
			next.StartTime = startTime
		})
	})
}

func (r *orderRepository) CreateStartTimeCorrection(ctx context.Context, c *domain.StartTimeCorrection) error {
	return run(r.s, r.t, func(t *tx) error {
		if c.CorrectedOn.IsZero() {
			c.CorrectedOn = time.Now().UTC()
		}
		r.s.mu.Lock()
		r.s.lastCorrectionID++
		c.ID = r.s.lastCorrectionID
		r.s.mu.Unlock()
		t.pendingCorrections = append(t.pendingCorrections, *c)
		return nil
	})
}

func (r *orderRepository) ListStartTimeCorrections(ctx context.Context, orderID int32) ([]domain.StartTimeCorrection, error) {
	var out []domain.StartTimeCorrection
	err := run(r.s, r.t, func(t *tx) error {
		r.s.mu.Lock()
		all := append(append([]domain.StartTimeCorrection(nil), r.s.corrections...), t.pendingCorrections...)
		r.s.mu.Unlock()
		for _, c := range all {
			if c.OrderID == orderID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CorrectedOn.Equal(out[j].CorrectedOn) {
			return out[i].CorrectedOn.Before(out[j].CorrectedOn)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.RentalOrder, int32, error) {
	filter.Normalize()

	all, err := r.all(func(o *domain.RentalOrder) bool {
		if filter.Status != "" && o.Status != filter.Status {
			return false
		}
		return filter.CustomerID == 0 || o.CustomerID == filter.CustomerID
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedOn.Equal(all[j].CreatedOn) {
			return all[i].CreatedOn.After(all[j].CreatedOn)
		}
		return all[i].ID > all[j].ID
	})

	count := int32(len(all))
	start := filter.Offset()
	if start > count {
		start = count
	}
	end := start + filter.PageSize
	if end > count {
		end = count
	}
	return all[start:end], count, nil
}

func (r *orderRepository) ListOpen(ctx context.Context) ([]domain.RentalOrder, error) {
	open, err := r.all(func(o *domain.RentalOrder) bool {
		return o.Status != domain.OrderStatusReturned
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].StartTime.Equal(open[j].StartTime) {
			return open[i].StartTime.Before(open[j].StartTime)
		}
		return open[i].ID < open[j].ID
	})
	return open, nil
}

func (r *orderRepository) all(keep func(o *domain.RentalOrder) bool) ([]domain.RentalOrder, error) {
	var out []domain.RentalOrder
	err := run(r.s, r.t, func(t *tx) error {
		r.s.mu.Lock()
		ids := make([]int32, 0, len(r.s.orders))
		for id := range r.s.orders {
			ids = append(ids, id)
		}
		r.s.mu.Unlock()

		for _, id := range ids {
			if o := r.snapshot(t, id); o != nil && keep(o) {
				out = append(out, *o)
			}
		}
		return nil
	})
	return out, err
}
