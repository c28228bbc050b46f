package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidReturnQuantity = errors.New("invalid return quantity")
	ErrOrderNotFound         = errors.New("order not found")
	ErrItemNotFound          = errors.New("order item not found")
	ErrOrderAlreadyReturned  = errors.New("order already returned")
	ErrProductNotFound       = errors.New("product not found")
	ErrIdempotencyKeyReused  = errors.New("idempotency key already used for a different request")
	ErrInvalidRequest        = errors.New("invalid request")
)

// InsufficientStockError reports the product that could not cover an allocation.
type InsufficientStockError struct {
	ProductID int32
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ReturnQuantityError reports a return line that is not positive or exceeds what is still out.
type ReturnQuantityError struct {
	OrderItemID int32
	Requested   int32
	Active      int32
}

func (e *ReturnQuantityError) Error() string {
	if e.Requested <= 0 {
		return fmt.Sprintf("invalid return quantity for order item %d: %d must be positive", e.OrderItemID, e.Requested)
	}
	return fmt.Sprintf("invalid return quantity for order item %d: requested %d, active %d", e.OrderItemID, e.Requested, e.Active)
}

func (e *ReturnQuantityError) Unwrap() error {
	return ErrInvalidReturnQuantity
}
