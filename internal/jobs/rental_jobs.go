package jobs

import (
	"context"

	"github.com/shopspring/decimal"

	"rentdesk-backend/internal/logger"
)

// ReportOpenOrders logs every order that still has units out, with what it would cost if
// everything came back now. It does not change any state.
func (jr *JobRunner) ReportOpenOrders() error {
	return jr.runWithRecovery(JobReportOpenOrders, func(ctx context.Context) error {
		asOf := jr.now()
		accruals, err := jr.reports.OpenOrders(ctx, asOf)
		if err != nil {
			return err
		}

		total := decimal.Zero
		var units int32
		for _, a := range accruals {
			logger.Info("Open order",
				"orderID", a.OrderID,
				"customerID", a.CustomerID,
				"status", a.Status,
				"elapsedHours", a.ElapsedHours,
				"activeUnits", a.ActiveUnits,
				"accrued", a.AccruedAmount.StringFixed(2),
			)
			total = total.Add(a.AccruedAmount)
			units += a.ActiveUnits
		}

		logger.Info("Open orders reported",
			"count", len(accruals),
			"activeUnits", units,
			"accrued", total.StringFixed(2),
			"asOf", asOf,
		)
		return nil
	})
}
