package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentdesk-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRentalService struct {
	mock.Mock
}

func (m *MockRentalService) CreateRental(ctx context.Context, req domain.CreateRentalRequest) (*domain.RentalOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalOrder), args.Error(1)
}

func (m *MockRentalService) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (*domain.ReturnResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReturnResult), args.Error(1)
}

func (m *MockRentalService) FullReturn(ctx context.Context, orderID int32, asOf *time.Time, key string) (*domain.ReturnResult, error) {
	args := m.Called(ctx, orderID, asOf, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReturnResult), args.Error(1)
}

func (m *MockRentalService) CorrectStartTime(ctx context.Context, orderID int32, newStart time.Time, reason string) (*domain.RentalOrder, *domain.StartTimeCorrection, error) {
	args := m.Called(ctx, orderID, newStart, reason)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.RentalOrder), args.Get(1).(*domain.StartTimeCorrection), args.Error(2)
}

func (m *MockRentalService) GetOrder(ctx context.Context, id int32) (*domain.RentalOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalOrder), args.Error(1)
}

func (m *MockRentalService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.RentalOrder, int32, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.RentalOrder), int32(args.Int(1)), args.Error(2)
}

func (m *MockRentalService) ListOrderReturns(ctx context.Context, orderID int32) ([]domain.ReturnRecord, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]domain.ReturnRecord), args.Error(1)
}

func (m *MockRentalService) ListStartTimeCorrections(ctx context.Context, orderID int32) ([]domain.StartTimeCorrection, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]domain.StartTimeCorrection), args.Error(1)
}

func (m *MockRentalService) GetOrderSummary(ctx context.Context, orderID int32, asOf *time.Time) (*domain.OrderSummary, error) {
	args := m.Called(ctx, orderID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderSummary), args.Error(1)
}

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) GetProduct(ctx context.Context, id int32) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockInventoryService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) ListReturns(ctx context.Context, from, to time.Time) ([]domain.ReturnRecord, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.ReturnRecord), args.Error(1)
}

func (m *MockReportService) DailyRevenue(ctx context.Context, from, to time.Time) ([]domain.DailyRevenue, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.DailyRevenue), args.Error(1)
}

func (m *MockReportService) OpenOrders(ctx context.Context, asOf time.Time) ([]domain.OpenOrderAccrual, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]domain.OpenOrderAccrual), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type harness struct {
	rental    *MockRentalService
	inventory *MockInventoryService
	report    *MockReportService
	handler   http.Handler
}

func newHarness(pingErr error) *harness {
	h := &harness{
		rental:    new(MockRentalService),
		inventory: new(MockInventoryService),
		report:    new(MockReportService),
	}
	h.handler = NewRouter(Services{Rental: h.rental, Inventory: h.inventory, Report: h.report}, stubPinger{err: pingErr})
	return h
}

func (h *harness) do(method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var t0 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func TestCreateOrder(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newHarness(nil)
		want := domain.CreateRentalRequest{
			CustomerID:     7,
			Lines:          []domain.StockLine{{ProductID: 1, Quantity: 3}},
			StartTime:      &t0,
			AdvancePayment: decimal.RequireFromString("50"),
		}
		h.rental.On("CreateRental", mock.Anything, mock.MatchedBy(func(req domain.CreateRentalRequest) bool {
			return req.CustomerID == want.CustomerID &&
				assert.ObjectsAreEqual(want.Lines, req.Lines) &&
				req.StartTime != nil && req.StartTime.Equal(t0) &&
				req.AdvancePayment.Equal(want.AdvancePayment)
		})).Return(&domain.RentalOrder{ID: 1, CustomerID: 7, Status: domain.OrderStatusPending}, nil)

		rec := h.do("POST", "/api/v1/orders",
			`{"customer_id":7,"start_time":"2024-01-01T08:00:00Z","advance_payment":"50","items":[{"product_id":1,"quantity":3}]}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var order domain.RentalOrder
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
		assert.Equal(t, int32(1), order.ID)
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
		h.rental.AssertExpectations(t)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("CreateRental", mock.Anything, mock.Anything).
			Return(nil, &domain.InsufficientStockError{ProductID: 1, Requested: 5, Available: 2})

		rec := h.do("POST", "/api/v1/orders", `{"customer_id":7,"items":[{"product_id":1,"quantity":5}]}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
		assert.Contains(t, body.Error, "product 1")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		h := newHarness(nil)
		rec := h.do("POST", "/api/v1/orders", `{"customer_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, rec).Code)
		h.rental.AssertNotCalled(t, "CreateRental", mock.Anything, mock.Anything)
	})

	t.Run("UnknownField", func(t *testing.T) {
		h := newHarness(nil)
		rec := h.do("POST", "/api/v1/orders", `{"customer":7}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProcessReturn(t *testing.T) {
	key := "5f0c7f57-8a39-4a3a-9a55-0b5b2f7f1c11"
	asOf := t0.Add(30 * time.Hour)

	t.Run("Created", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("ProcessReturn", mock.Anything, mock.MatchedBy(func(req domain.ReturnRequest) bool {
			return req.OrderID == 3 && req.IdempotencyKey == key &&
				len(req.Lines) == 1 && req.Lines[0] == domain.ReturnLine{OrderItemID: 9, Quantity: 2} &&
				req.AsOf != nil && req.AsOf.Equal(asOf)
		})).Return(&domain.ReturnResult{
			Order: &domain.RentalOrder{ID: 3, Status: domain.OrderStatusPartiallyReturned},
			Records: []domain.ReturnRecord{
				{ID: 1, ReturnAmount: decimal.RequireFromString("125")},
				{ID: 2, ReturnAmount: decimal.RequireFromString("25")},
			},
		}, nil)

		rec := h.do("POST", "/api/v1/orders/3/returns",
			`{"items":[{"order_item_id":9,"return_quantity":2}],"as_of":"2024-01-02T14:00:00Z"}`,
			"Idempotency-Key", key)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var body returnResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, decimal.NewFromInt(150).Equal(body.TotalAmount))
		assert.False(t, body.Replayed)
		h.rental.AssertExpectations(t)
	})

	t.Run("Replayed", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("ProcessReturn", mock.Anything, mock.Anything).
			Return(&domain.ReturnResult{Order: &domain.RentalOrder{ID: 3}, Replayed: true}, nil)

		rec := h.do("POST", "/api/v1/orders/3/returns", `{"items":[{"order_item_id":9,"return_quantity":2}]}`, "Idempotency-Key", key)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Errors", func(t *testing.T) {
		cases := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"InvalidQuantity", &domain.ReturnQuantityError{OrderItemID: 9, Requested: 4, Active: 2}, http.StatusUnprocessableEntity, "INVALID_RETURN_QUANTITY"},
			{"AlreadyReturned", domain.ErrOrderAlreadyReturned, http.StatusConflict, "ORDER_ALREADY_RETURNED"},
			{"KeyReused", domain.ErrIdempotencyKeyReused, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED"},
			{"OrderNotFound", domain.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
			{"ItemNotFound", domain.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
			{"Internal", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				h := newHarness(nil)
				h.rental.On("ProcessReturn", mock.Anything, mock.Anything).Return(nil, tc.err)

				rec := h.do("POST", "/api/v1/orders/3/returns", `{"items":[{"order_item_id":9,"return_quantity":4}]}`)

				assert.Equal(t, tc.status, rec.Code)
				assert.Equal(t, tc.code, decodeError(t, rec).Code)
			})
		}
	})

	t.Run("InternalErrorHidesDetail", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("ProcessReturn", mock.Anything, mock.Anything).Return(nil, errors.New("pq: password authentication failed"))

		rec := h.do("POST", "/api/v1/orders/3/returns", `{"items":[]}`)
		assert.Equal(t, "internal error", decodeError(t, rec).Error)
	})

	t.Run("BadOrderID", func(t *testing.T) {
		h := newHarness(nil)
		rec := h.do("POST", "/api/v1/orders/abc/returns", `{"items":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		h.rental.AssertNotCalled(t, "ProcessReturn", mock.Anything, mock.Anything)
	})
}

func TestFullReturn(t *testing.T) {
	t.Run("EmptyBody", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("FullReturn", mock.Anything, int32(4), (*time.Time)(nil), "").
			Return(&domain.ReturnResult{Order: &domain.RentalOrder{ID: 4, Status: domain.OrderStatusReturned}}, nil)

		rec := h.do("POST", "/api/v1/orders/4/full-return", nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		h.rental.AssertExpectations(t)
	})

	t.Run("WithAsOf", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("FullReturn", mock.Anything, int32(4), mock.MatchedBy(func(at *time.Time) bool {
			return at != nil && at.Equal(t0.Add(2*time.Hour))
		}), "").Return(&domain.ReturnResult{Order: &domain.RentalOrder{ID: 4}}, nil)

		rec := h.do("POST", "/api/v1/orders/4/full-return", `{"as_of":"2024-01-01T10:00:00Z"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		h.rental.AssertExpectations(t)
	})
}

func TestOrderQueries(t *testing.T) {
	t.Run("GetOrderNotFound", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("GetOrder", mock.Anything, int32(99)).Return(nil, domain.ErrOrderNotFound)

		rec := h.do("GET", "/api/v1/orders/99", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ListOrdersDefaults", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("ListOrders", mock.Anything, domain.OrderFilter{
			Status: domain.OrderStatusPending, CustomerID: 7, Page: 1, PageSize: 20,
		}).Return([]domain.RentalOrder(nil), 0, nil)

		rec := h.do("GET", "/api/v1/orders?status=PENDING&customer_id=7", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body listOrdersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotNil(t, body.Orders)
		assert.Equal(t, int32(20), body.PageSize)
		h.rental.AssertExpectations(t)
	})

	t.Run("ListOrdersBadStatus", func(t *testing.T) {
		h := newHarness(nil)
		rec := h.do("GET", "/api/v1/orders?status=LOST", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Summary", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("GetOrderSummary", mock.Anything, int32(5), mock.MatchedBy(func(at *time.Time) bool {
			return at != nil && at.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
		})).Return(&domain.OrderSummary{OrderID: 5, Total: decimal.NewFromInt(110)}, nil)

		rec := h.do("GET", "/api/v1/orders/5/summary?as_of=2024-01-03", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total":"110"`)
	})

	t.Run("CorrectStartTime", func(t *testing.T) {
		h := newHarness(nil)
		newStart := t0.Add(-time.Hour)
		h.rental.On("CorrectStartTime", mock.Anything, int32(5), mock.MatchedBy(func(at time.Time) bool {
			return at.Equal(newStart)
		}), "picked up early").Return(
			&domain.RentalOrder{ID: 5, StartTime: newStart},
			&domain.StartTimeCorrection{ID: 1, OrderID: 5, OldStartTime: t0, NewStartTime: newStart},
			nil,
		)

		rec := h.do("PUT", "/api/v1/orders/5/start-time", `{"start_time":"2024-01-01T07:00:00Z","reason":"picked up early"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		h.rental.AssertExpectations(t)
	})

	t.Run("CorrectStartTimeMissing", func(t *testing.T) {
		h := newHarness(nil)
		rec := h.do("PUT", "/api/v1/orders/5/start-time", `{"reason":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ListReturnsEmpty", func(t *testing.T) {
		h := newHarness(nil)
		h.rental.On("ListOrderReturns", mock.Anything, int32(5)).Return([]domain.ReturnRecord(nil), nil)

		rec := h.do("GET", "/api/v1/orders/5/returns", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestProductsAndReports(t *testing.T) {
	t.Run("ProductNotFound", func(t *testing.T) {
		h := newHarness(nil)
		h.inventory.On("GetProduct", mock.Anything, int32(2)).Return(nil, domain.ErrProductNotFound)

		rec := h.do("GET", "/api/v1/products/2", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "PRODUCT_NOT_FOUND", decodeError(t, rec).Code)
	})

	t.Run("DailyRevenue", func(t *testing.T) {
		h := newHarness(nil)
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
		h.report.On("DailyRevenue", mock.Anything, from, to).
			Return([]domain.DailyRevenue{{Day: "2024-01-01", Amount: decimal.NewFromInt(500), Returns: 2, Units: 5}}, nil)

		rec := h.do("GET", "/api/v1/reports/daily-revenue?from=2024-01-01&to=2024-01-08", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		h.report.AssertExpectations(t)
	})

	t.Run("WindowRequired", func(t *testing.T) {
		h := newHarness(nil)
		rec := h.do("GET", "/api/v1/reports/returns?from=2024-01-01", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	assert.Equal(t, http.StatusOK, newHarness(nil).do("GET", "/healthz", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, newHarness(errors.New("down")).do("GET", "/healthz", nil).Code)
}
