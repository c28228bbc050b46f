package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int32           `json:"id"`
	Name           string          `json:"name"`
	Size           string          `json:"size"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	Weight         decimal.Decimal `json:"weight"`
	AvailableCount int32           `json:"available_count"`
	CreatedOn      time.Time       `json:"created_on"`
	UpdatedOn      time.Time       `json:"updated_on"`
}

// StockLine is a quantity of one product moved in or out of the shop's stock.
type StockLine struct {
	ProductID int32 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// MergeStockLines sums quantities per product and returns the lines in ascending
// product id order, which is also the lock order used by the inventory ledgers.
func MergeStockLines(lines []StockLine) []StockLine {
	totals := make(map[int32]int32, len(lines))
	for _, l := range lines {
		totals[l.ProductID] += l.Quantity
	}
	merged := make([]StockLine, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, StockLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}
