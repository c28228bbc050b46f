// Package events publishes notifications about committed rental changes to external
// collaborators such as receipt printing and reporting.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated    = "order.created"
	TypeReturnProcessed = "return.processed"
)

// Event is the envelope written to the broker. Key is used for partitioning so every event
// of one order lands on the same partition.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"-"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type OrderCreated struct {
	OrderID        int32           `json:"order_id"`
	CustomerID     int32           `json:"customer_id"`
	StartTime      time.Time       `json:"start_time"`
	AdvancePayment decimal.Decimal `json:"advance_payment"`
	Units          int32           `json:"units"`
}

type ReturnProcessed struct {
	OrderID     int32           `json:"order_id"`
	BatchID     string          `json:"batch_id"`
	Status      string          `json:"status"`
	Units       int32           `json:"units"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ReturnedAt  time.Time       `json:"returned_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
