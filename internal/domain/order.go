package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPartiallyReturned OrderStatus = "PARTIALLY_RETURNED"
	OrderStatusReturned          OrderStatus = "RETURNED"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPartiallyReturned, OrderStatusReturned:
		return true
	}
	return false
}

type RentalOrder struct {
	ID         int32 `json:"id"`
	CustomerID int32 `json:"customer_id"`
	// StartTime is the instant the billing clock starts. It is set once at creation and
	// only changes through an audited StartTimeCorrection.
	StartTime      time.Time       `json:"start_time"`
	AdvancePayment decimal.Decimal `json:"advance_payment"`
	Status         OrderStatus     `json:"status"`
	ReturnedAt     *time.Time      `json:"returned_at,omitempty"`
	Items          []OrderItem     `json:"items"`
	CreatedOn      time.Time       `json:"created_on"`
	UpdatedOn      time.Time       `json:"updated_on"`
}

type OrderItem struct {
	ID        int32 `json:"id"`
	OrderID   int32 `json:"order_id"`
	ProductID int32 `json:"product_id"`
	// PricePerUnit is the product price captured when the rental was created.
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
	TotalQuantity    int32           `json:"total_quantity"`
	ReturnedQuantity int32           `json:"returned_quantity"`
}

// ActiveQuantity is the number of units still out with the customer.
func (i OrderItem) ActiveQuantity() int32 {
	return i.TotalQuantity - i.ReturnedQuantity
}

// Item returns a pointer into o.Items so callers can update the line in place.
func (o *RentalOrder) Item(id int32) (*OrderItem, bool) {
	for idx := range o.Items {
		if o.Items[idx].ID == id {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

// ActiveUnits is the total number of units not yet returned across all items.
func (o *RentalOrder) ActiveUnits() int32 {
	var n int32
	for _, it := range o.Items {
		n += it.ActiveQuantity()
	}
	return n
}

// RefreshStatus re-derives the status from the items and stamps ReturnedAt the first
// time the order reaches RETURNED.
func (o *RentalOrder) RefreshStatus(asOf time.Time) {
	o.Status = DeriveStatus(o.Items)
	if o.Status == OrderStatusReturned && o.ReturnedAt == nil {
		at := asOf
		o.ReturnedAt = &at
	}
}

// Clone returns a deep copy so stores can hand out orders without sharing item slices.
func (o *RentalOrder) Clone() *RentalOrder {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.ReturnedAt != nil {
		at := *o.ReturnedAt
		c.ReturnedAt = &at
	}
	return &c
}

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Status     OrderStatus
	CustomerID int32
	Page       int32
	PageSize   int32
}

// Normalize applies paging defaults.
func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 200 {
		f.PageSize = 200
	}
}

// Offset is the number of rows skipped for the current page.
func (f OrderFilter) Offset() int32 {
	return (f.Page - 1) * f.PageSize
}

// StartTimeCorrection is the audit entry written whenever an order's start time is changed.
type StartTimeCorrection struct {
	ID           int32     `json:"id"`
	OrderID      int32     `json:"order_id"`
	OldStartTime time.Time `json:"old_start_time"`
	NewStartTime time.Time `json:"new_start_time"`
	Reason       string    `json:"reason"`
	CorrectedOn  time.Time `json:"corrected_on"`
}

// CreateRentalRequest carries everything needed to open a rental.
type CreateRentalRequest struct {
	CustomerID     int32
	Lines          []StockLine
	StartTime      *time.Time // defaults to now
	AdvancePayment decimal.Decimal
}
