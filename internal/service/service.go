package service

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
)

type RentalService interface {
	CreateRental(ctx context.Context, req domain.CreateRentalRequest) (*domain.RentalOrder, error)
	ProcessReturn(ctx context.Context, req domain.ReturnRequest) (*domain.ReturnResult, error)
	// FullReturn returns every unit still active on the order.
	FullReturn(ctx context.Context, orderID int32, asOf *time.Time, idempotencyKey string) (*domain.ReturnResult, error)
	CorrectStartTime(ctx context.Context, orderID int32, newStart time.Time, reason string) (*domain.RentalOrder, *domain.StartTimeCorrection, error)
	GetOrder(ctx context.Context, id int32) (*domain.RentalOrder, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.RentalOrder, int32, error)
	ListOrderReturns(ctx context.Context, orderID int32) ([]domain.ReturnRecord, error)
	ListStartTimeCorrections(ctx context.Context, orderID int32) ([]domain.StartTimeCorrection, error)
	GetOrderSummary(ctx context.Context, orderID int32, asOf *time.Time) (*domain.OrderSummary, error)
}

type InventoryService interface {
	GetProduct(ctx context.Context, id int32) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type ReportService interface {
	ListReturns(ctx context.Context, from, to time.Time) ([]domain.ReturnRecord, error)
	DailyRevenue(ctx context.Context, from, to time.Time) ([]domain.DailyRevenue, error)
	OpenOrders(ctx context.Context, asOf time.Time) ([]domain.OpenOrderAccrual, error)
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
