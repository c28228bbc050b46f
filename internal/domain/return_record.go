package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnRecord is the immutable audit entry for one item line of one return call.
type ReturnRecord struct {
	ID int32 `json:"id"`
	// BatchID groups the records produced by the same return call.
	BatchID           string          `json:"batch_id"`
	OrderID           int32           `json:"order_id"`
	OrderItemID       int32           `json:"order_item_id"`
	ProductID         int32           `json:"product_id"`
	ReturnQuantity    int32           `json:"return_quantity"`
	ReturnedAt        time.Time       `json:"returned_at"`
	ElapsedHours      int64           `json:"elapsed_hours"`
	BillingMultiplier decimal.Decimal `json:"billing_multiplier"`
	ReturnAmount      decimal.Decimal `json:"return_amount"`
}

// ReturnLine asks for a quantity of one order item to be checked back in.
type ReturnLine struct {
	OrderItemID int32 `json:"order_item_id"`
	Quantity    int32 `json:"return_quantity"`
}

type ReturnRequest struct {
	OrderID int32
	Lines   []ReturnLine
	AsOf    *time.Time // defaults to now
	// IdempotencyKey is optional. When set, repeating the call with the same key and lines
	// returns the original records without touching any state.
	IdempotencyKey string
}

type ReturnResult struct {
	Order   *RentalOrder   `json:"order"`
	Records []ReturnRecord `json:"records"`
	// Replayed is true when the records come from an earlier call with the same key.
	Replayed bool `json:"replayed"`
}

// TotalAmount sums the charge of every record in the result.
func (r *ReturnResult) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, rec := range r.Records {
		total = total.Add(rec.ReturnAmount)
	}
	return total
}

type IdempotencyKey struct {
	Key         string    `json:"key"`
	OrderID     int32     `json:"order_id"`
	Fingerprint string    `json:"fingerprint"`
	BatchID     string    `json:"batch_id"`
	CreatedOn   time.Time `json:"created_on"`
}

// OrderSummary is the settlement view of an order at a point in time.
type OrderSummary struct {
	OrderID          int32           `json:"order_id"`
	Status           OrderStatus     `json:"status"`
	AsOf             time.Time       `json:"as_of"`
	ElapsedHours     int64           `json:"elapsed_hours"`
	Multiplier       decimal.Decimal `json:"multiplier"`
	ReturnedSubtotal decimal.Decimal `json:"returned_subtotal"`
	AccruedSubtotal  decimal.Decimal `json:"accrued_subtotal"`
	TaxPercent       decimal.Decimal `json:"tax_percent"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	AdvancePayment   decimal.Decimal `json:"advance_payment"`
	BalanceDue       decimal.Decimal `json:"balance_due"`
	ActiveUnits      int32           `json:"active_units"`
}

// DailyRevenue is the sum of return charges booked on one UTC day.
type DailyRevenue struct {
	Day     string          `json:"day"`
	Amount  decimal.Decimal `json:"amount"`
	Returns int32           `json:"returns"`
	Units   int32           `json:"units"`
}

// OpenOrderAccrual describes what an order still out with a customer would cost if it
// were fully returned at AsOf.
type OpenOrderAccrual struct {
	OrderID       int32           `json:"order_id"`
	CustomerID    int32           `json:"customer_id"`
	Status        OrderStatus     `json:"status"`
	AsOf          time.Time       `json:"as_of"`
	ElapsedHours  int64           `json:"elapsed_hours"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	ActiveUnits   int32           `json:"active_units"`
	AccruedAmount decimal.Decimal `json:"accrued_amount"`
}
