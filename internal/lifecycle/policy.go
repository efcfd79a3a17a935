package lifecycle

import (
	"time"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
)

// WindowState is where "now" sits relative to a horizon's tolerance window
type WindowState int

const (
	WindowBefore WindowState = iota // too early, check again next tick
	WindowOpen                      // inside the window, collect now
	WindowMissed                    // window elapsed, horizon is dead
)

// Policy holds the retry/backoff and collection window rules.
// One coherent policy for every stage: exponential backoff scaled by
// retry count, tolerance scaled by horizon.
// ⭐ SSOT: 재시도/허용오차 정책은 여기서만
type Policy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration

	tolerances map[contracts.Horizon]time.Duration
}

// NewPolicy builds the policy from pipeline config
func NewPolicy(cfg *config.Config) *Policy {
	return &Policy{
		MaxRetries:  cfg.Pipeline.MaxRetries,
		BackoffBase: cfg.Pipeline.BackoffBase,
		BackoffCap:  cfg.Pipeline.BackoffCap,
		tolerances: map[contracts.Horizon]time.Duration{
			contracts.Horizon1h: cfg.Pipeline.Tolerance1h,
			contracts.Horizon1d: cfg.Pipeline.Tolerance1d,
			contracts.Horizon7d: cfg.Pipeline.Tolerance7d,
		},
	}
}

// Backoff returns the wait after the given number of failures:
// base * 2^retry, capped.
func (p *Policy) Backoff(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	d := p.BackoffBase
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	return d
}

// RetryEligible reports whether a previously failed record has waited
// out its backoff. UpdatedAt is the last attempt timestamp.
func (p *Policy) RetryEligible(rec *contracts.PostRecord, now time.Time) bool {
	if rec.RetryCount == 0 {
		return true
	}
	return now.Sub(rec.UpdatedAt) >= p.Backoff(rec.RetryCount)
}

// Exhausted reports whether the retry budget is spent
func (p *Policy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// Tolerance returns the allowed deviation around a horizon's due time
func (p *Policy) Tolerance(h contracts.Horizon) time.Duration {
	return p.tolerances[h]
}

// Window places "now" relative to the horizon's tolerance window
// around publishedAt + offset(h). The lower edge is exclusive: a tick
// landing exactly at due-tolerance waits for the next one.
func (p *Policy) Window(publishedAt time.Time, h contracts.Horizon, now time.Time) WindowState {
	due := publishedAt.Add(h.Offset())
	tol := p.Tolerance(h)
	switch {
	case !now.After(due.Add(-tol)):
		return WindowBefore
	case now.After(due.Add(tol)):
		return WindowMissed
	default:
		return WindowOpen
	}
}
