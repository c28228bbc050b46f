package http

import (
	"net/http"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/service"
)

// ProductHandler serves the read-only product catalog
type ProductHandler struct {
	inventorySvc service.InventoryService
}

func NewProductHandler(inventorySvc service.InventoryService) *ProductHandler {
	return &ProductHandler{inventorySvc: inventorySvc}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventorySvc.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.inventorySvc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ReportHandler serves the reporting and export endpoints
type ReportHandler struct {
	reportSvc service.ReportService
}

func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// ListReturns handles GET /api/v1/reports/returns?from=&to=
func (h *ReportHandler) ListReturns(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := h.reportSvc.ListReturns(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.ReturnRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// DailyRevenue handles GET /api/v1/reports/daily-revenue?from=&to=
func (h *ReportHandler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := h.reportSvc.DailyRevenue(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if days == nil {
		days = []domain.DailyRevenue{}
	}
	writeJSON(w, http.StatusOK, days)
}

// OpenOrders handles GET /api/v1/reports/open-orders?as_of=
func (h *ReportHandler) OpenOrders(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		writeError(w, r, err)
		return
	}
	at := time.Now().UTC()
	if asOf != nil {
		at = *asOf
	}
	accruals, err := h.reportSvc.OpenOrders(r.Context(), at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if accruals == nil {
		accruals = []domain.OpenOrderAccrual{}
	}
	writeJSON(w, http.StatusOK, accruals)
}
