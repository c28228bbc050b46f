package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/utils"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// maxReportWindow bounds range queries so a single report cannot scan the whole history.
const maxReportWindow = 366 * 24 * time.Hour

type reportService struct {
	returnRepo repository.ReturnRepository
	orderRepo  repository.OrderRepository
}

func NewReportService(returnRepo repository.ReturnRepository, orderRepo repository.OrderRepository) ReportService {
	return &reportService{
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
	}
}

func validateWindow(from, to time.Time) error {
	if !from.Before(to) {
		return fmt.Errorf("%w: from must be before to", domain.ErrInvalidRequest)
	}
	if to.Sub(from) > maxReportWindow {
		return fmt.Errorf("%w: report window exceeds %d days", domain.ErrInvalidRequest, int(maxReportWindow.Hours()/24))
	}
	return nil
}

func (s *reportService) ListReturns(ctx context.Context, from, to time.Time) ([]domain.ReturnRecord, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	return s.returnRepo.ListBetween(ctx, from.UTC(), to.UTC())
}

// DailyRevenue sums return charges per UTC day. Days without returns are omitted.
func (s *reportService) DailyRevenue(ctx context.Context, from, to time.Time) ([]domain.DailyRevenue, error) {
	logger.EnterMethod("reportService.DailyRevenue", "from", from, "to", to)

	records, err := s.ListReturns(ctx, from, to)
	if err != nil {
		logger.ExitMethodWithError("reportService.DailyRevenue", err)
		return nil, err
	}

	byDay := make(map[string]*domain.DailyRevenue)
	batches := make(map[string]map[string]struct{})
	for _, rec := range records {
		day := rec.ReturnedAt.UTC().Format(dayLayout)
		d, ok := byDay[day]
		if !ok {
			d = &domain.DailyRevenue{Day: day, Amount: decimal.Zero}
			byDay[day] = d
			batches[day] = make(map[string]struct{})
		}
		d.Amount = d.Amount.Add(rec.ReturnAmount)
		d.Units += rec.ReturnQuantity
		if _, seen := batches[day][rec.BatchID]; !seen {
			batches[day][rec.BatchID] = struct{}{}
			d.Returns++
		}
	}

	days := make([]domain.DailyRevenue, 0, len(byDay))
	for _, d := range byDay {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	logger.ExitMethod("reportService.DailyRevenue", "days", len(days))
	return days, nil
}

// OpenOrders prices every order that still has units out as if it were fully returned at asOf.
func (s *reportService) OpenOrders(ctx context.Context, asOf time.Time) ([]domain.OpenOrderAccrual, error) {
	orders, err := s.orderRepo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	accruals := make([]domain.OpenOrderAccrual, 0, len(orders))
	for _, o := range orders {
		m := utils.ComputeMultiplier(o.StartTime, asOf)
		amount := decimal.Zero
		for _, it := range o.Items {
			if qty := it.ActiveQuantity(); qty > 0 {
				amount = amount.Add(m.Charge(it.PricePerUnit, qty))
			}
		}
		accruals = append(accruals, domain.OpenOrderAccrual{
			OrderID:       o.ID,
			CustomerID:    o.CustomerID,
			Status:        o.Status,
			AsOf:          asOf,
			ElapsedHours:  m.ElapsedHours(),
			Multiplier:    m.Decimal(),
			ActiveUnits:   o.ActiveUnits(),
			AccruedAmount: amount,
		})
	}
	return accruals, nil
}
