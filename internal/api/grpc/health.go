package grpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"rentdesk-backend/internal/api/grpc/interceptor"
	"rentdesk-backend/internal/logger"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "rentdesk.v1.Rentals"

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter keeps the gRPC health status in step with the storage backend.
type HealthReporter struct {
	server   *health.Server
	store    Pinger
	interval time.Duration

	mu      sync.Mutex
	serving bool
}

func NewHealthReporter(store Pinger, interval time.Duration) *HealthReporter {
	return &HealthReporter{
		server:   health.NewServer(),
		store:    store,
		interval: interval,
	}
}

// Server returns the underlying health service implementation.
func (h *HealthReporter) Server() *health.Server {
	return h.server
}

// Check pings the store once and updates the reported status.
func (h *HealthReporter) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.store.Ping(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.mu.Lock()
	changed := h.serving != (err == nil)
	h.serving = err == nil
	h.mu.Unlock()

	if changed {
		if err != nil {
			logger.Warn("Store unreachable, reporting NOT_SERVING", "error", err)
		} else {
			logger.Info("Store reachable, reporting SERVING")
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

// Run checks the store every interval until ctx is cancelled, then marks the server as
// shutting down.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds the gRPC server with the health service, reflection and the logging
// interceptor registered.
func NewServer(reporter *HealthReporter) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewLoggingInterceptor().Unary()),
	)
	healthpb.RegisterHealthServer(s, reporter.Server())

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}
