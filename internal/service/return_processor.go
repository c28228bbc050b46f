package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/utils"
)

// ReturnProcessor applies one return call to a locked order. It must run inside the
// transaction that locked the order: either every step below is persisted or none is.
type ReturnProcessor struct{}

func NewReturnProcessor() *ReturnProcessor {
	return &ReturnProcessor{}
}

// Apply validates lines against order, prices them as of asOf, releases the units, moves
// the order status forward and writes one ReturnRecord per returned item. order is updated
// in place. On error nothing has been written.
func (p *ReturnProcessor) Apply(
	ctx context.Context,
	repos repository.Repositories,
	order *domain.RentalOrder,
	lines []domain.ReturnLine,
	asOf time.Time,
	batchID string,
) ([]domain.ReturnRecord, error) {
	logger.EnterMethod("ReturnProcessor.Apply", "orderID", order.ID, "lines", len(lines), "batchID", batchID)

	merged, err := validateReturn(order, lines)
	if err != nil {
		logger.Warn("Return rejected", "orderID", order.ID, "error", err)
		return nil, err
	}

	multiplier := utils.ComputeMultiplier(order.StartTime, asOf)
	logger.Debug("Computed billing multiplier", "orderID", order.ID,
		"elapsedHours", multiplier.ElapsedHours(), "multiplier", multiplier.Decimal().String())

	records := make([]domain.ReturnRecord, 0, len(merged))
	stock := make([]domain.StockLine, 0, len(merged))
	for _, line := range merged {
		item, _ := order.Item(line.OrderItemID)
		item.ReturnedQuantity += line.Quantity

		records = append(records, domain.ReturnRecord{
			BatchID:           batchID,
			OrderID:           order.ID,
			OrderItemID:       item.ID,
			ProductID:         item.ProductID,
			ReturnQuantity:    line.Quantity,
			ReturnedAt:        asOf,
			ElapsedHours:      multiplier.ElapsedHours(),
			BillingMultiplier: multiplier.Decimal(),
			ReturnAmount:      multiplier.Charge(item.PricePerUnit, line.Quantity),
		})
		stock = append(stock, domain.StockLine{ProductID: item.ProductID, Quantity: line.Quantity})
	}

	if err := repos.Inventory.Release(ctx, stock); err != nil {
		logger.ExitMethodWithError("ReturnProcessor.Apply", err, "orderID", order.ID, "step", "release")
		return nil, err
	}

	prev := order.Status
	order.RefreshStatus(asOf)
	if !domain.CanTransition(prev, order.Status) {
		err := fmt.Errorf("order %d status would move from %s to %s", order.ID, prev, order.Status)
		logger.ExitMethodWithError("ReturnProcessor.Apply", err, "orderID", order.ID)
		return nil, err
	}

	if err := repos.Orders.UpdateProgress(ctx, order); err != nil {
		logger.ExitMethodWithError("ReturnProcessor.Apply", err, "orderID", order.ID, "step", "update order")
		return nil, err
	}

	if err := repos.Returns.CreateBatch(ctx, records); err != nil {
		logger.ExitMethodWithError("ReturnProcessor.Apply", err, "orderID", order.ID, "step", "records")
		return nil, err
	}

	if prev != order.Status {
		logger.Info("Order status changed", "orderID", order.ID, "from", prev, "to", order.Status)
	}
	logger.ExitMethod("ReturnProcessor.Apply", "orderID", order.ID, "records", len(records), "status", order.Status)
	return records, nil
}

// validateReturn checks every line before anything is touched and merges repeated lines
// for the same item. The result is sorted by order item id.
func validateReturn(order *domain.RentalOrder, lines []domain.ReturnLine) ([]domain.ReturnLine, error) {
	if order.Status == domain.OrderStatusReturned {
		return nil, fmt.Errorf("%w: order %d", domain.ErrOrderAlreadyReturned, order.ID)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no return lines", domain.ErrInvalidReturnQuantity)
	}

	totals := make(map[int32]int32, len(lines))
	for _, line := range lines {
		item, ok := order.Item(line.OrderItemID)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not part of order %d", domain.ErrItemNotFound, line.OrderItemID, order.ID)
		}
		if line.Quantity <= 0 {
			return nil, &domain.ReturnQuantityError{
				OrderItemID: line.OrderItemID,
				Requested:   line.Quantity,
				Active:      item.ActiveQuantity(),
			}
		}
		totals[line.OrderItemID] += line.Quantity
	}

	merged := make([]domain.ReturnLine, 0, len(totals))
	for id, qty := range totals {
		item, _ := order.Item(id)
		if qty > item.ActiveQuantity() {
			return nil, &domain.ReturnQuantityError{
				OrderItemID: id,
				Requested:   qty,
				Active:      item.ActiveQuantity(),
			}
		}
		merged = append(merged, domain.ReturnLine{OrderItemID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].OrderItemID < merged[j].OrderItemID })
	return merged, nil
}

// fullReturnLines lists every item that still has units out, at its active quantity.
func fullReturnLines(order *domain.RentalOrder) []domain.ReturnLine {
	var lines []domain.ReturnLine
	for _, it := range order.Items {
		if qty := it.ActiveQuantity(); qty > 0 {
			lines = append(lines, domain.ReturnLine{OrderItemID: it.ID, Quantity: qty})
		}
	}
	return lines
}

// returnFingerprint identifies the content of a return request independently of line
// order and splitting, so a retried call matches its first attempt.
func returnFingerprint(lines []domain.ReturnLine) string {
	totals := make(map[int32]int64, len(lines))
	for _, l := range lines {
		totals[l.OrderItemID] += int64(l.Quantity)
	}
	ids := make([]int, 0, len(totals))
	for id := range totals {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(totals[int32(id)], 10))
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func fullReturnFingerprint(orderID int32) string {
	return fmt.Sprintf("full:%d", orderID)
}
