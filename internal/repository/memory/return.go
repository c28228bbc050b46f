package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentdesk-backend/internal/domain"
)

type returnRepository struct {
	s *Store
	t *tx
}

func (r *returnRepository) CreateBatch(ctx context.Context, records []domain.ReturnRecord) error {
	return run(r.s, r.t, func(t *tx) error {
		r.s.mu.Lock()
		for i := range records {
			r.s.lastReturnID++
			records[i].ID = r.s.lastReturnID
		}
		r.s.mu.Unlock()
		t.pendingReturns = append(t.pendingReturns, records...)
		return nil
	})
}

func (r *returnRepository) ListByOrder(ctx context.Context, orderID int32) ([]domain.ReturnRecord, error) {
	return r.list(func(rec domain.ReturnRecord) bool { return rec.OrderID == orderID })
}

func (r *returnRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.ReturnRecord, error) {
	return r.list(func(rec domain.ReturnRecord) bool { return rec.BatchID == batchID })
}

func (r *returnRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.ReturnRecord, error) {
	return r.list(func(rec domain.ReturnRecord) bool {
		return !rec.ReturnedAt.Before(from) && rec.ReturnedAt.Before(to)
	})
}

func (r *returnRepository) list(keep func(rec domain.ReturnRecord) bool) ([]domain.ReturnRecord, error) {
	var out []domain.ReturnRecord
	err := run(r.s, r.t, func(t *tx) error {
		r.s.mu.Lock()
		for _, rec := range r.s.returns {
			if keep(rec) {
				out = append(out, rec)
			}
		}
		r.s.mu.Unlock()
		for _, rec := range t.pendingReturns {
			if keep(rec) {
				out = append(out, rec)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReturnedAt.Equal(out[j].ReturnedAt) {
			return out[i].ReturnedAt.Before(out[j].ReturnedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

type idempotencyRepository struct {
	s *Store
	t *tx
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[key]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, k *domain.IdempotencyKey) error {
	return run(r.s, r.t, func(t *tx) error {
		if k.CreatedOn.IsZero() {
			k.CreatedOn = time.Now().UTC()
		}
		var err error
		t.write(func() {
			if _, ok := r.s.keys[k.Key]; ok {
				err = fmt.Errorf("%w: %s", domain.ErrIdempotencyKeyReused, k.Key)
				return
			}
			r.s.keys[k.Key] = *k
		}, nil)
		if err != nil {
			return err
		}
		key := k.Key
		t.undo = append(t.undo, func() { delete(r.s.keys, key) })
		return nil
	})
}

func (r *idempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for key, k := range r.s.keys {
		if k.CreatedOn.Before(cutoff) {
			delete(r.s.keys, key)
			n++
		}
	}
	return n, nil
}
