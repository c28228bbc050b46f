package jobs

import (
	"context"
	"fmt"
	"time"

	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/metrics"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/service"
)

const (
	JobPurgeIdempotencyKeys = "purge-idempotency-keys"
	JobReportOpenOrders     = "report-open-orders"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	idempotency repository.IdempotencyRepository
	reports     service.ReportService
	config      *config.Config
	now         func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(idempotency repository.IdempotencyRepository, reports service.ReportService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		idempotency: idempotency,
		reports:     reports,
		config:      cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and records the outcome
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	log := logger.WithJob(jobName)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.JobRunsTotal.WithLabelValues(jobName, outcome).Inc()
	}()

	start := time.Now()
	log.Info("Starting job")
	if err = jobFunc(context.Background()); err != nil {
		log.Error("Job failed", "error", err)
		return err
	}
	log.Info("Job completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Run runs one job by name, or every job for "all"
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobPurgeIdempotencyKeys:
		return jr.PurgeIdempotencyKeys()
	case JobReportOpenOrders:
		return jr.ReportOpenOrders()
	case "all":
		if err := jr.PurgeIdempotencyKeys(); err != nil {
			return err
		}
		return jr.ReportOpenOrders()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

// JobNames lists the jobs accepted by Run
func JobNames() []string {
	return []string{JobPurgeIdempotencyKeys, JobReportOpenOrders, "all"}
}
