package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/domain"
)

type MockIdempotencyRepository struct {
	mock.Mock
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyKey), args.Error(1)
}

func (m *MockIdempotencyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
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

var now = time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

func newRunner() (*JobRunner, *MockIdempotencyRepository, *MockReportService) {
	keys := new(MockIdempotencyRepository)
	reports := new(MockReportService)
	cfg := &config.Config{Idempotency: config.IdempotencyConfig{RetentionHours: 48}}
	jr := NewJobRunner(keys, reports, cfg)
	jr.now = func() time.Time { return now }
	return jr, keys, reports
}

func TestPurgeIdempotencyKeys(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		jr, keys, _ := newRunner()
		keys.On("DeleteOlderThan", mock.Anything, now.Add(-48*time.Hour)).Return(int64(3), nil)

		assert.NoError(t, jr.PurgeIdempotencyKeys())
		keys.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		jr, keys, _ := newRunner()
		keys.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

		assert.Error(t, jr.PurgeIdempotencyKeys())
	})
}

func TestReportOpenOrders(t *testing.T) {
	jr, _, reports := newRunner()
	reports.On("OpenOrders", mock.Anything, now).Return([]domain.OpenOrderAccrual{
		{OrderID: 1, ActiveUnits: 2, AccruedAmount: decimal.NewFromInt(200)},
		{OrderID: 2, ActiveUnits: 1, AccruedAmount: decimal.NewFromInt(50)},
	}, nil)

	assert.NoError(t, jr.ReportOpenOrders())
	reports.AssertExpectations(t)
}

func TestRunWithRecovery(t *testing.T) {
	jr, _, _ := newRunner()
	err := jr.runWithRecovery("panicky", func(context.Context) error {
		panic("boom")
	})
	assert.ErrorContains(t, err, "panicked")
}

func TestRun(t *testing.T) {
	jr, keys, reports := newRunner()
	keys.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil)
	reports.On("OpenOrders", mock.Anything, mock.Anything).Return([]domain.OpenOrderAccrual{}, nil)

	assert.NoError(t, jr.Run("all"))
	assert.Error(t, jr.Run("mark-overdue"))
	keys.AssertNumberOfCalls(t, "DeleteOlderThan", 1)
	reports.AssertNumberOfCalls(t, "OpenOrders", 1)
}
