package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/events"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/metrics"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type rentalService struct {
	store      repository.Store
	processor  *ReturnProcessor
	publisher  events.Publisher
	taxPercent decimal.Decimal
	now        Clock
}

func NewRentalService(
	store repository.Store,
	publisher events.Publisher,
	taxPercent decimal.Decimal,
	clock Clock,
) RentalService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clock == nil {
		clock = systemClock
	}
	return &rentalService{
		store:      store,
		processor:  NewReturnProcessor(),
		publisher:  publisher,
		taxPercent: taxPercent,
		now:        clock,
	}
}

func (s *rentalService) CreateRental(ctx context.Context, req domain.CreateRentalRequest) (*domain.RentalOrder, error) {
	logger.EnterMethod("rentalService.CreateRental", "customerID", req.CustomerID, "lines", len(req.Lines))

	if err := validateCreateRental(req); err != nil {
		logger.Warn("Rental rejected", "customerID", req.CustomerID, "error", err)
		return nil, err
	}

	start := s.now()
	if req.StartTime != nil {
		start = req.StartTime.UTC()
	}
	lines := domain.MergeStockLines(req.Lines)

	var order *domain.RentalOrder
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		items := make([]domain.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, err := repos.Products.GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			items = append(items, domain.OrderItem{
				ProductID:     product.ID,
				PricePerUnit:  product.PricePerUnit,
				TotalQuantity: line.Quantity,
			})
		}

		if err := repos.Inventory.Allocate(ctx, lines); err != nil {
			return err
		}

		order = &domain.RentalOrder{
			CustomerID:     req.CustomerID,
			StartTime:      start,
			AdvancePayment: req.AdvancePayment,
			Status:         domain.OrderStatusPending,
			Items:          items,
		}
		return repos.Orders.Create(ctx, order)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.StockRejectionsTotal.Inc()
		} else if !isDomainError(err) {
			metrics.OperationErrorsTotal.WithLabelValues("create_rental").Inc()
		}
		logger.ExitMethodWithError("rentalService.CreateRental", err, "customerID", req.CustomerID)
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	s.publish(ctx, events.Event{
		Type:       events.TypeOrderCreated,
		Key:        strconv.Itoa(int(order.ID)),
		OccurredAt: order.CreatedOn,
		Payload: events.OrderCreated{
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			StartTime:      order.StartTime,
			AdvancePayment: order.AdvancePayment,
			Units:          order.ActiveUnits(),
		},
	})

	logger.Info("Rental created", "orderID", order.ID, "customerID", order.CustomerID, "units", order.ActiveUnits())
	logger.ExitMethod("rentalService.CreateRental", "orderID", order.ID)
	return order, nil
}

func validateCreateRental(req domain.CreateRentalRequest) error {
	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customer id is required", domain.ErrInvalidRequest)
	}
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", domain.ErrInvalidRequest)
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for product %d must be positive", domain.ErrInvalidRequest, line.ProductID)
		}
	}
	if req.AdvancePayment.IsNegative() {
		return fmt.Errorf("%w: advance payment must not be negative", domain.ErrInvalidRequest)
	}
	return nil
}

func (s *rentalService) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (*domain.ReturnResult, error) {
	lines := req.Lines
	return s.applyReturn(ctx, req.OrderID, req.AsOf, req.IdempotencyKey, returnFingerprint(lines),
		func(*domain.RentalOrder) []domain.ReturnLine { return lines })
}

func (s *rentalService) FullReturn(ctx context.Context, orderID int32, asOf *time.Time, idempotencyKey string) (*domain.ReturnResult, error) {
	return s.applyReturn(ctx, orderID, asOf, idempotencyKey, fullReturnFingerprint(orderID), fullReturnLines)
}

// applyReturn runs one return call in its own transaction. The idempotency key is checked
// after the order is locked so two retries of the same call cannot both get through.
func (s *rentalService) applyReturn(
	ctx context.Context,
	orderID int32,
	asOfPtr *time.Time,
	key string,
	fingerprint string,
	linesFor func(order *domain.RentalOrder) []domain.ReturnLine,
) (*domain.ReturnResult, error) {
	logger.EnterMethod("rentalService.applyReturn", "orderID", orderID, "idempotencyKey", key)

	if key != "" {
		if _, err := uuid.Parse(key); err != nil {
			return nil, fmt.Errorf("%w: idempotency key must be a UUID", domain.ErrInvalidRequest)
		}
	}
	asOf := s.now()
	if asOfPtr != nil {
		asOf = asOfPtr.UTC()
	}

	var result *domain.ReturnResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if key != "" {
			prior, err := repos.Idempotency.Get(ctx, key)
			if err != nil {
				return err
			}
			if prior != nil {
				if prior.OrderID != order.ID || prior.Fingerprint != fingerprint {
					return fmt.Errorf("%w: %s", domain.ErrIdempotencyKeyReused, key)
				}
				records, err := repos.Returns.ListByBatch(ctx, prior.BatchID)
				if err != nil {
					return err
				}
				result = &domain.ReturnResult{Order: order, Records: records, Replayed: true}
				return nil
			}
		}

		batchID := uuid.NewString()
		records, err := s.processor.Apply(ctx, repos, order, linesFor(order), asOf, batchID)
		if err != nil {
			return err
		}

		if key != "" {
			if err := repos.Idempotency.Create(ctx, &domain.IdempotencyKey{
				Key:         key,
				OrderID:     order.ID,
				Fingerprint: fingerprint,
				BatchID:     batchID,
			}); err != nil {
				return err
			}
		}

		result = &domain.ReturnResult{Order: order, Records: records}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			metrics.OperationErrorsTotal.WithLabelValues("process_return").Inc()
		}
		logger.ExitMethodWithError("rentalService.applyReturn", err, "orderID", orderID)
		return nil, err
	}

	if result.Replayed {
		metrics.ReturnsReplayedTotal.Inc()
		logger.Info("Return replayed", "orderID", orderID, "idempotencyKey", key)
		logger.ExitMethod("rentalService.applyReturn", "orderID", orderID, "replayed", true)
		return result, nil
	}

	var units int32
	for _, rec := range result.Records {
		units += rec.ReturnQuantity
	}
	metrics.ReturnsProcessedTotal.Inc()
	metrics.UnitsReturnedTotal.Add(float64(units))

	batchID := ""
	if len(result.Records) > 0 {
		batchID = result.Records[0].BatchID
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeReturnProcessed,
		Key:        strconv.Itoa(int(orderID)),
		OccurredAt: asOf,
		Payload: events.ReturnProcessed{
			OrderID:     orderID,
			BatchID:     batchID,
			Status:      string(result.Order.Status),
			Units:       units,
			TotalAmount: result.TotalAmount(),
			ReturnedAt:  asOf,
		},
	})

	logger.Info("Return processed", "orderID", orderID, "units", units,
		"amount", result.TotalAmount().String(), "status", result.Order.Status)
	logger.ExitMethod("rentalService.applyReturn", "orderID", orderID, "records", len(result.Records))
	return result, nil
}

func (s *rentalService) CorrectStartTime(ctx context.Context, orderID int32, newStart time.Time, reason string) (*domain.RentalOrder, *domain.StartTimeCorrection, error) {
	logger.EnterMethod("rentalService.CorrectStartTime", "orderID", orderID, "newStart", newStart)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, fmt.Errorf("%w: a reason is required", domain.ErrInvalidRequest)
	}
	if newStart.IsZero() {
		return nil, nil, fmt.Errorf("%w: start time is required", domain.ErrInvalidRequest)
	}
	newStart = newStart.UTC()

	var order *domain.RentalOrder
	var correction *domain.StartTimeCorrection
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderStatusReturned {
			return fmt.Errorf("%w: order %d", domain.ErrOrderAlreadyReturned, orderID)
		}
		if order.StartTime.Equal(newStart) {
			return fmt.Errorf("%w: start time is unchanged", domain.ErrInvalidRequest)
		}

		correction = &domain.StartTimeCorrection{
			OrderID:      orderID,
			OldStartTime: order.StartTime,
			NewStartTime: newStart,
			Reason:       reason,
			CorrectedOn:  s.now(),
		}
		if err := repos.Orders.UpdateStartTime(ctx, orderID, newStart); err != nil {
			return err
		}
		if err := repos.Orders.CreateStartTimeCorrection(ctx, correction); err != nil {
			return err
		}
		order.StartTime = newStart
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.CorrectStartTime", err, "orderID", orderID)
		return nil, nil, err
	}

	logger.Info("Start time corrected", "orderID", orderID,
		"old", correction.OldStartTime, "new", correction.NewStartTime, "reason", reason)
	logger.ExitMethod("rentalService.CorrectStartTime", "orderID", orderID)
	return order, correction, nil
}

func (s *rentalService) GetOrder(ctx context.Context, id int32) (*domain.RentalOrder, error) {
	return s.store.Repositories().Orders.GetByID(ctx, id)
}

func (s *rentalService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.RentalOrder, int32, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, filter.Status)
	}
	filter.Normalize()
	return s.store.Repositories().Orders.List(ctx, filter)
}

func (s *rentalService) ListOrderReturns(ctx context.Context, orderID int32) ([]domain.ReturnRecord, error) {
	repos := s.store.Repositories()
	if _, err := repos.Orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return repos.Returns.ListByOrder(ctx, orderID)
}

func (s *rentalService) ListStartTimeCorrections(ctx context.Context, orderID int32) ([]domain.StartTimeCorrection, error) {
	repos := s.store.Repositories()
	if _, err := repos.Orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return repos.Orders.ListStartTimeCorrections(ctx, orderID)
}

func (s *rentalService) GetOrderSummary(ctx context.Context, orderID int32, asOfPtr *time.Time) (*domain.OrderSummary, error) {
	asOf := s.now()
	if asOfPtr != nil {
		asOf = asOfPtr.UTC()
	}

	repos := s.store.Repositories()
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	records, err := repos.Returns.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	returned := decimal.Zero
	for _, rec := range records {
		returned = returned.Add(rec.ReturnAmount)
	}

	multiplier := utils.ComputeMultiplier(order.StartTime, asOf)
	accrued := decimal.Zero
	for _, it := range order.Items {
		if qty := it.ActiveQuantity(); qty > 0 {
			accrued = accrued.Add(multiplier.Charge(it.PricePerUnit, qty))
		}
	}

	subtotal := returned.Add(accrued)
	tax := utils.ApplyTax(subtotal, s.taxPercent)
	total := subtotal.Add(tax)

	return &domain.OrderSummary{
		OrderID:          order.ID,
		Status:           order.Status,
		AsOf:             asOf,
		ElapsedHours:     multiplier.ElapsedHours(),
		Multiplier:       multiplier.Decimal(),
		ReturnedSubtotal: returned,
		AccruedSubtotal:  accrued,
		TaxPercent:       s.taxPercent,
		Tax:              tax,
		Total:            total,
		AdvancePayment:   order.AdvancePayment,
		BalanceDue:       total.Sub(order.AdvancePayment),
		ActiveUnits:      order.ActiveUnits(),
	}, nil
}

// publish sends an event after commit. Failures are logged and counted but never undo
// the committed change.
func (s *rentalService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		metrics.EventPublishFailuresTotal.WithLabelValues(event.Type).Inc()
		logger.Error("Failed to publish event", "type", event.Type, "key", event.Key, "error", err)
	}
}

// isDomainError reports whether err is an expected business rejection rather than an
// infrastructure failure.
func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrInsufficientStock,
		domain.ErrInvalidReturnQuantity,
		domain.ErrOrderNotFound,
		domain.ErrItemNotFound,
		domain.ErrOrderAlreadyReturned,
		domain.ErrProductNotFound,
		domain.ErrIdempotencyKeyReused,
		domain.ErrInvalidRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
