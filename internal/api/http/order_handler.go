package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/service"
)

const maxBodyBytes = 1 << 20

// OrderHandler serves the rental order endpoints
type OrderHandler struct {
	rentalSvc service.RentalService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(rentalSvc service.RentalService) *OrderHandler {
	return &OrderHandler{rentalSvc: rentalSvc}
}

// decodeBody reads a JSON body into v. An empty body is accepted when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.rentalSvc.CreateRental(r.Context(), domain.CreateRentalRequest{
		CustomerID:     req.CustomerID,
		Lines:          req.Items,
		StartTime:      req.StartTime,
		AdvancePayment: req.AdvancePayment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders?status=&customer_id=&page=&page_size=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{Status: domain.OrderStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, filter.Status))
		return
	}
	var err error
	if filter.CustomerID, err = queryInt(r, "customer_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Page, err = queryInt(r, "page"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.PageSize, err = queryInt(r, "page_size"); err != nil {
		writeError(w, r, err)
		return
	}
	filter.Normalize()

	orders, total, err := h.rentalSvc.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.RentalOrder{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{
		Orders:   orders,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.rentalSvc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ProcessReturn handles POST /api/v1/orders/{id}/returns
func (h *OrderHandler) ProcessReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.rentalSvc.ProcessReturn(r.Context(), domain.ReturnRequest{
		OrderID:        id,
		Lines:          req.Items,
		AsOf:           req.AsOf,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeReturnResult(w, res)
}

// FullReturn handles POST /api/v1/orders/{id}/full-return
func (h *OrderHandler) FullReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fullReturnRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.rentalSvc.FullReturn(r.Context(), id, req.AsOf, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeReturnResult(w, res)
}

// A replayed return did not create anything, so it answers 200 instead of 201.
func writeReturnResult(w http.ResponseWriter, res *domain.ReturnResult) {
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, newReturnResponse(res))
}

// ListOrderReturns handles GET /api/v1/orders/{id}/returns
func (h *OrderHandler) ListOrderReturns(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := h.rentalSvc.ListOrderReturns(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.ReturnRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetOrderSummary handles GET /api/v1/orders/{id}/summary?as_of=
func (h *OrderHandler) GetOrderSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.rentalSvc.GetOrderSummary(r.Context(), id, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CorrectStartTime handles PUT /api/v1/orders/{id}/start-time
func (h *OrderHandler) CorrectStartTime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req correctStartTimeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StartTime.IsZero() {
		writeError(w, r, fmt.Errorf("%w: start_time is required", domain.ErrInvalidRequest))
		return
	}

	order, correction, err := h.rentalSvc.CorrectStartTime(r.Context(), id, req.StartTime, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, correctStartTimeResponse{Order: order, Correction: correction})
}

// ListStartTimeCorrections handles GET /api/v1/orders/{id}/start-time-corrections
func (h *OrderHandler) ListStartTimeCorrections(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	corrections, err := h.rentalSvc.ListStartTimeCorrections(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if corrections == nil {
		corrections = []domain.StartTimeCorrection{}
	}
	writeJSON(w, http.StatusOK, corrections)
}
