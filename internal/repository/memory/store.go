// Package memory is an in-process implementation of repository.Store.
//
// Every product and order row has its own mutex. A transaction takes a row mutex the first
// time it touches the row and keeps it until commit or rollback, so writers to the same row
// are serialized while unrelated rows proceed in parallel. Changes are applied in place and
// recorded in an undo journal that a rollback replays backwards. Append-only rows (return
// records and start time corrections) are staged and only become visible on commit.
//
// Lock order is order row first, then product rows in ascending id order. Newly created
// orders are locked after their products, which never blocks because nobody else can
// hold a lock on an id that did not exist yet.
package memory

import (
	"context"
	"sync"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"
)

type table byte

const (
	productTable table = 'p'
	orderTable   table = 'o'
)

type rowKey struct {
	table table
	id    int32
}

type Store struct {
	mu sync.Mutex

	products    map[int32]*domain.Product
	orders      map[int32]*domain.RentalOrder
	returns     []domain.ReturnRecord
	corrections []domain.StartTimeCorrection
	keys        map[string]domain.IdempotencyKey
	rows        map[rowKey]*sync.Mutex

	lastProductID    int32
	lastOrderID      int32
	lastItemID       int32
	lastReturnID     int32
	lastCorrectionID int32
}

func NewStore() *Store {
	return &Store{
		products: make(map[int32]*domain.Product),
		orders:   make(map[int32]*domain.RentalOrder),
		keys:     make(map[string]domain.IdempotencyKey),
		rows:     make(map[rowKey]*sync.Mutex),
	}
}

// Repositories returns repositories where every call is its own transaction.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(nil)
}

func (s *Store) repositories(t *tx) repository.Repositories {
	return repository.Repositories{
		Products:    &productRepository{s: s, t: t},
		Inventory:   &inventoryLedger{s: s, t: t},
		Orders:      &orderRepository{s: s, t: t},
		Returns:     &returnRepository{s: s, t: t},
		Idempotency: &idempotencyRepository{s: s, t: t},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := s.begin()
	defer func() {
		if p := recover(); p != nil {
			t.end(false)
			panic(p)
		}
	}()

	err = fn(ctx, s.repositories(t))
	t.end(err == nil)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// rowMutex returns the mutex guarding a row, creating it on first use.
func (s *Store) rowMutex(k rowKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[k]
	if !ok {
		m = &sync.Mutex{}
		s.rows[k] = m
	}
	return m
}

// tx is one unit of work against the store.
type tx struct {
	s        *Store
	held     map[rowKey]*sync.Mutex
	acquired []rowKey
	undo     []func()

	pendingReturns     []domain.ReturnRecord
	pendingCorrections []domain.StartTimeCorrection
}

func (s *Store) begin() *tx {
	return &tx{s: s, held: make(map[rowKey]*sync.Mutex)}
}

// lock takes the row mutex and holds it until the transaction ends.
func (t *tx) lock(k rowKey) {
	if _, ok := t.held[k]; ok {
		return
	}
	m := t.s.rowMutex(k)
	m.Lock()
	t.held[k] = m
	t.acquired = append(t.acquired, k)
}

// read runs fn under s.mu after making sure no other transaction is writing the row.
// Rows this transaction holds are read directly, others are locked only for the copy.
func (t *tx) read(k rowKey, fn func()) {
	if _, ok := t.held[k]; ok {
		t.s.mu.Lock()
		fn()
		t.s.mu.Unlock()
		return
	}
	m := t.s.rowMutex(k)
	m.Lock()
	t.s.mu.Lock()
	fn()
	t.s.mu.Unlock()
	m.Unlock()
}

// write runs fn under s.mu and journals undo for rollback. The caller holds the row lock.
func (t *tx) write(fn func(), undo func()) {
	t.s.mu.Lock()
	fn()
	t.s.mu.Unlock()
	if undo != nil {
		t.undo = append(t.undo, undo)
	}
}

func (t *tx) end(commit bool) {
	t.s.mu.Lock()
	if commit {
		t.s.returns = append(t.s.returns, t.pendingReturns...)
		t.s.corrections = append(t.s.corrections, t.pendingCorrections...)
	} else {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
	}
	t.s.mu.Unlock()

	for i := len(t.acquired) - 1; i >= 0; i-- {
		t.held[t.acquired[i]].Unlock()
	}
	t.held = nil
	t.acquired = nil
}

// run executes fn inside t, or inside a transaction of its own when t is nil.
func run(s *Store, t *tx, fn func(t *tx) error) error {
	if t != nil {
		return fn(t)
	}
	own := s.begin()
	err := fn(own)
	own.end(err == nil)
	return err
}

var _ repository.Store = (*Store)(nil)
