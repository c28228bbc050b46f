package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rentdesk-backend/internal/jobs"
	"rentdesk-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails when a
// configured cron spec does not parse.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Job errors are logged and counted by the runner
	if _, err := s.cron.AddFunc(cfg.PurgeIdempotencyKeys, func() { _ = s.jobs.PurgeIdempotencyKeys() }); err != nil {
		logger.Error("Failed to register PurgeIdempotencyKeys job", "error", err)
		return fmt.Errorf("register %s: %w", jobs.JobPurgeIdempotencyKeys, err)
	}

	if _, err := s.cron.AddFunc(cfg.ReportOpenOrders, func() { _ = s.jobs.ReportOpenOrders() }); err != nil {
		logger.Error("Failed to register ReportOpenOrders job", "error", err)
		return fmt.Errorf("register %s: %w", jobs.JobReportOpenOrders, err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
