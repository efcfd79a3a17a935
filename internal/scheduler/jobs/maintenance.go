package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vox/backend/internal/store"
	"github.com/wonny/vox/backend/pkg/logger"
)

// RetentionJob purges terminal records past their retention window.
// Done and error records keep their last state for operator inspection
// but are not kept forever.
type RetentionJob struct {
	repo      *store.Repository
	retention time.Duration
	logger    *logger.Logger
}

// NewRetentionJob creates the nightly retention job
func NewRetentionJob(repo *store.Repository, retention time.Duration, log *logger.Logger) *RetentionJob {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &RetentionJob{
		repo:      repo,
		retention: retention,
		logger:    log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "record_retention"
}

// Schedule returns the cron schedule (every day at 3 AM KST)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run purges expired terminal records
func (j *RetentionJob) Run(ctx context.Context) error {
	purged, err := j.repo.PurgeTerminal(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("retention purge failed: %w", err)
	}

	if purged > 0 {
		j.logger.WithField("purged", purged).Info("Terminal records purged")
	}
	return nil
}
