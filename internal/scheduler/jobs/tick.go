package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vox/backend/internal/lifecycle"
	"github.com/wonny/vox/backend/pkg/logger"
)

// TickJob drives the lifecycle state machine on a fixed interval
// ⭐ SSOT: 라이프사이클 틱 스케줄은 이 Job에서만
type TickJob struct {
	scheduler *lifecycle.Scheduler
	interval  time.Duration
	logger    *logger.Logger
}

// NewTickJob creates the periodic lifecycle tick
func NewTickJob(sched *lifecycle.Scheduler, interval time.Duration, log *logger.Logger) *TickJob {
	return &TickJob{
		scheduler: sched,
		interval:  interval,
		logger:    log,
	}
}

// Name returns the job name
func (j *TickJob) Name() string {
	return "lifecycle_tick"
}

// Schedule returns the cron schedule derived from the tick interval
func (j *TickJob) Schedule() string {
	return fmt.Sprintf("@every %s", j.interval)
}

// MaxRetries disables scheduler-level retries: the tick loop itself is
// the retry, and per-record backoff lives in the lifecycle policy
func (j *TickJob) MaxRetries() int {
	return 0
}

// Run executes one tick
func (j *TickJob) Run(ctx context.Context) error {
	return j.scheduler.RunTick(ctx)
}
