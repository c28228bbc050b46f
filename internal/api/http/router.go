package http

import (
	"context"
	"net/http"

	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the services exposed over HTTP
type Services struct {
	Rental    service.RentalService
	Inventory service.InventoryService
	Report    service.ReportService
}

// NewRouter builds the HTTP API router
func NewRouter(svcs Services, store Pinger) *mux.Router {
	router := mux.NewRouter()
	RegisterRoutes(router, svcs, store)
	return router
}

// RegisterRoutes registers the JSON API, health and metrics endpoints
func RegisterRoutes(router *mux.Router, svcs Services, store Pinger) {
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", healthz(store)).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(requestLogging)

	orders := NewOrderHandler(svcs.Rental)
	api.HandleFunc("/orders", orders.CreateOrder).Methods("POST")
	api.HandleFunc("/orders", orders.ListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", orders.GetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/returns", orders.ProcessReturn).Methods("POST")
	api.HandleFunc("/orders/{id}/returns", orders.ListOrderReturns).Methods("GET")
	api.HandleFunc("/orders/{id}/full-return", orders.FullReturn).Methods("POST")
	api.HandleFunc("/orders/{id}/summary", orders.GetOrderSummary).Methods("GET")
	api.HandleFunc("/orders/{id}/start-time", orders.CorrectStartTime).Methods("PUT")
	api.HandleFunc("/orders/{id}/start-time-corrections", orders.ListStartTimeCorrections).Methods("GET")

	products := NewProductHandler(svcs.Inventory)
	api.HandleFunc("/products", products.ListProducts).Methods("GET")
	api.HandleFunc("/products/{id}", products.GetProduct).Methods("GET")

	reports := NewReportHandler(svcs.Report)
	api.HandleFunc("/reports/returns", reports.ListReturns).Methods("GET")
	api.HandleFunc("/reports/daily-revenue", reports.DailyRevenue).Methods("GET")
	api.HandleFunc("/reports/open-orders", reports.OpenOrders).Methods("GET")
}

func healthz(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Warn("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
