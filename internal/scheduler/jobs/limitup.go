package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/internal/trigger"
	"github.com/wonny/vox/backend/pkg/logger"
)

// LimitUpJob fires the limit-up trigger after market close so every
// stock that hit its daily ceiling gets commentary
type LimitUpJob struct {
	manager *trigger.Manager
	logger  *logger.Logger
}

// NewLimitUpJob creates the daily limit-up trigger job
func NewLimitUpJob(manager *trigger.Manager, log *logger.Logger) *LimitUpJob {
	return &LimitUpJob{
		manager: manager,
		logger:  log,
	}
}

// Name returns the job name
func (j *LimitUpJob) Name() string {
	return "limitup_trigger"
}

// Schedule returns the cron schedule (weekdays at 4:10 PM KST, after close)
func (j *LimitUpJob) Schedule() string {
	return "0 10 16 * * 1-5"
}

// Run fires the trigger
func (j *LimitUpJob) Run(ctx context.Context) error {
	result, err := j.manager.Execute(ctx, contracts.TriggerConfig{
		Kind: contracts.TriggerLimitUp,
	})
	if err != nil {
		return fmt.Errorf("limit-up trigger failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"processed": result.Processed,
		"generated": result.Generated,
		"errors":    len(result.Errors),
	}).Info("Daily limit-up trigger completed")

	return nil
}
