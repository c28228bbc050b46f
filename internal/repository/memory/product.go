package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentdesk-backend/internal/domain"
)

type productRepository struct {
	s *Store
	t *tx
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	return run(r.s, r.t, func(t *tx) error {
		now := time.Now().UTC()
		var id int32
		t.write(func() {
			r.s.lastProductID++
			id = r.s.lastProductID
			p.ID = id
			p.CreatedOn, p.UpdatedOn = now, now
			stored := *p
			r.s.products[id] = &stored
		}, func() {
			delete(r.s.products, id)
		})
		return nil
	})
}

func (r *productRepository) GetByID(ctx context.Context, id int32) (*domain.Product, error) {
	var out *domain.Product
	err := run(r.s, r.t, func(t *tx) error {
		t.read(rowKey{productTable, id}, func() {
			if p, ok := r.s.products[id]; ok {
				c := *p
				out = &c
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: id %d", domain.ErrProductNotFound, id)
	}
	return out, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := run(r.s, r.t, func(t *tx) error {
		for _, id := range r.s.productIDs() {
			t.read(rowKey{productTable, id}, func() {
				if p, ok := r.s.products[id]; ok {
					products = append(products, *p)
				}
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (s *Store) productIDs() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int32, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// inventoryLedger locks each product row before touching its count, in ascending id order.
type inventoryLedger struct {
	s *Store
	t *tx
}

func (l *inventoryLedger) Allocate(ctx context.Context, lines []domain.StockLine) error {
	return run(l.s, l.t, func(t *tx) error {
		for _, line := range domain.MergeStockLines(lines) {
			if err := l.adjust(t, line, -line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *inventoryLedger) Release(ctx context.Context, lines []domain.StockLine) error {
	return run(l.s, l.t, func(t *tx) error {
		for _, line := range domain.MergeStockLines(lines) {
			if err := l.adjust(t, line, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *inventoryLedger) adjust(t *tx, line domain.StockLine, delta int32) error {
	t.lock(rowKey{productTable, line.ProductID})

	var err error
	var prev int32
	var p *domain.Product
	t.write(func() {
		var ok bool
		p, ok = l.s.products[line.ProductID]
		if !ok {
			err = fmt.Errorf("%w: id %d", domain.ErrProductNotFound, line.ProductID)
			return
		}
		if p.AvailableCount+delta < 0 {
			err = &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.AvailableCount,
			}
			return
		}
		prev = p.AvailableCount
		p.AvailableCount += delta
		p.UpdatedOn = time.Now().UTC()
	}, nil)
	if err != nil {
		return err
	}

	t.undo = append(t.undo, func() { p.AvailableCount = prev })
	return nil
}
