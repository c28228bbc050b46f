package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rentdesk-backend/internal/domain"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	CustomerID     int32              `json:"customer_id"`
	StartTime      *time.Time         `json:"start_time,omitempty"`
	AdvancePayment decimal.Decimal    `json:"advance_payment"`
	Items          []domain.StockLine `json:"items"`
}

type returnRequest struct {
	Items []domain.ReturnLine `json:"items"`
	AsOf  *time.Time          `json:"as_of,omitempty"`
}

type fullReturnRequest struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

type correctStartTimeRequest struct {
	StartTime time.Time `json:"start_time"`
	Reason    string    `json:"reason"`
}

type returnResponse struct {
	Order       *domain.RentalOrder   `json:"order"`
	Records     []domain.ReturnRecord `json:"records"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	Replayed    bool                  `json:"replayed"`
}

func newReturnResponse(res *domain.ReturnResult) returnResponse {
	return returnResponse{
		Order:       res.Order,
		Records:     res.Records,
		TotalAmount: res.TotalAmount(),
		Replayed:    res.Replayed,
	}
}

type correctStartTimeResponse struct {
	Order      *domain.RentalOrder         `json:"order"`
	Correction *domain.StartTimeCorrection `json:"correction"`
}

type listOrdersResponse struct {
	Orders   []domain.RentalOrder `json:"orders"`
	Total    int32                `json:"total"`
	Page     int32                `json:"page"`
	PageSize int32                `json:"page_size"`
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidRequest, name, raw)
	}
	return int32(id), nil
}

func queryInt(r *http.Request, name string) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidRequest, name, raw)
	}
	return int32(v), nil
}

// queryTime accepts RFC 3339 timestamps or plain dates, which are read as UTC midnight.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidRequest, name, raw)
	}
	return &t, nil
}

// window reads the required from/to query parameters of the report endpoints.
func window(r *http.Request) (time.Time, time.Time, error) {
	from, err := queryTime(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from and to are required", domain.ErrInvalidRequest)
	}
	return *from, *to, nil
}
