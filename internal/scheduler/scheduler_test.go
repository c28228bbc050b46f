package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/jobs"
)

func TestNewScheduler(t *testing.T) {
	t.Run("RegistersJobs", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{
			PurgeIdempotencyKeys: "0 15 * * * *",
			ReportOpenOrders:     "0 0 6 * * *",
		}}
		s, err := NewScheduler(jobs.NewJobRunner(nil, nil, cfg))
		require.NoError(t, err)
		assert.Equal(t, 2, s.Entries())

		s.Start()
		s.Stop()
	})

	t.Run("BadSpec", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{
			PurgeIdempotencyKeys: "every hour",
			ReportOpenOrders:     "0 0 6 * * *",
		}}
		_, err := NewScheduler(jobs.NewJobRunner(nil, nil, cfg))
		assert.Error(t, err)
	})
}
