package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReporter(t *testing.T) {
	ctx := context.Background()
	store := &stubPinger{}
	reporter := NewHealthReporter(store, time.Minute)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := reporter.Server().Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.Status
	}

	reporter.Check(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ServiceName))

	store.err = errors.New("connection refused")
	reporter.Check(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))

	store.err = nil
	reporter.Check(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ServiceName))
}

func TestHealthReporterRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reporter := NewHealthReporter(&stubPinger{}, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		reporter.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewServer(t *testing.T) {
	s := NewServer(NewHealthReporter(&stubPinger{}, time.Minute))
	info := s.GetServiceInfo()
	assert.Contains(t, info, "grpc.health.v1.Health")
	assert.Contains(t, info, "grpc.reflection.v1.ServerReflection")
}
