package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentdesk_orders_created_total",
		Help: "Total number of rental orders successfully created.",
	})

	ReturnsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentdesk_returns_processed_total",
		Help: "Total number of return calls committed.",
	})

	ReturnsReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentdesk_returns_replayed_total",
		Help: "Total number of return calls answered from an earlier idempotent call.",
	})

	UnitsReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentdesk_units_returned_total",
		Help: "Total number of units checked back into stock.",
	})

	StockRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentdesk_stock_rejections_total",
		Help: "Total number of rentals rejected for insufficient stock.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentdesk_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentdesk_event_publish_failures_total",
		Help: "Total number of events that could not be published.",
	},
		[]string{"event"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentdesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route and status code.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"route", "method", "code"},
	)

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentdesk_job_runs_total",
		Help: "Total number of scheduled job runs by outcome.",
	},
		[]string{"job", "outcome"},
	)
)
