package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/internal/trigger"
	"github.com/wonny/vox/backend/pkg/logger"
)

// TrendingJob fires the trending-topic trigger every weekday morning
// with the configured keyword set
type TrendingJob struct {
	manager  *trigger.Manager
	keywords []string
	logger   *logger.Logger
}

// NewTrendingJob creates the daily trending trigger job
func NewTrendingJob(manager *trigger.Manager, keywords []string, log *logger.Logger) *TrendingJob {
	return &TrendingJob{
		manager:  manager,
		keywords: keywords,
		logger:   log,
	}
}

// Name returns the job name
func (j *TrendingJob) Name() string {
	return "trending_trigger"
}

// Schedule returns the cron schedule (weekdays at 9 AM KST, market open)
func (j *TrendingJob) Schedule() string {
	return "0 0 9 * * 1-5"
}

// Run fires the trigger
func (j *TrendingJob) Run(ctx context.Context) error {
	if len(j.keywords) == 0 {
		j.logger.Debug("No daily keywords configured, skipping trending trigger")
		return nil
	}

	result, err := j.manager.Execute(ctx, contracts.TriggerConfig{
		Kind:     contracts.TriggerTrendingTopic,
		Keywords: j.keywords,
	})
	if err != nil {
		return fmt.Errorf("trending trigger failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"processed": result.Processed,
		"generated": result.Generated,
		"errors":    len(result.Errors),
	}).Info("Daily trending trigger completed")

	return nil
}
