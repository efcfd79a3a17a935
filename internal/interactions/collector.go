package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/logger"
)

// Collector fetches raw engagement from the platform and normalizes it
// into an EngagementMetrics sample. It is a pure fetch: lifecycle
// state stays untouched.
// ⭐ SSOT: 인게이지먼트 정규화는 여기서만
type Collector struct {
	metrics  contracts.MetricsAPI
	sessions *Sessions
	logger   *logger.Logger
}

// NewCollector creates the engagement collection adapter
func NewCollector(metrics contracts.MetricsAPI, sessions *Sessions, log *logger.Logger) *Collector {
	return &Collector{
		metrics:  metrics,
		sessions: sessions,
		logger:   log.WithField("module", "interactions"),
	}
}

// Collect fetches one engagement sample for the record at the given
// horizon
func (c *Collector) Collect(ctx context.Context, rec *contracts.PostRecord, h contracts.Horizon) (*contracts.EngagementMetrics, error) {
	if rec.PlatformPostID == "" {
		return nil, contracts.NewPermanent("engagement",
			fmt.Errorf("post %s has no platform post ID", rec.PostID))
	}

	token, err := c.sessions.Token(ctx, rec.PersonaID)
	if err != nil {
		return nil, err
	}

	raw, err := c.metrics.GetEngagement(ctx, token, rec.PlatformPostID)
	if err != nil && contracts.IsPermanent(err) {
		// One fresh login before giving up on the sample
		if token, rerr := c.sessions.Refresh(ctx, rec.PersonaID); rerr == nil {
			raw, err = c.metrics.GetEngagement(ctx, token, rec.PlatformPostID)
		}
	}
	if err != nil {
		return nil, err
	}

	sample := normalize(raw)
	sample.PostID = rec.PostID
	sample.Horizon = h
	sample.CollectedAt = time.Now()

	c.logger.WithFields(map[string]interface{}{
		"post_id": rec.PostID,
		"horizon": string(h),
		"total":   sample.Total(),
	}).Info("Engagement collected")

	return sample, nil
}

// normalize maps the platform's loosely typed payload onto the fixed
// schema. Known counters fill the named fields; any other numeric
// field and the nested reaction map land in Reactions.
func normalize(raw map[string]any) *contracts.EngagementMetrics {
	m := &contracts.EngagementMetrics{Reactions: make(map[string]int64)}

	for key, value := range raw {
		switch key {
		case "likes", "like_count":
			m.Likes = asCount(value)
		case "comments", "comment_count":
			m.Comments = asCount(value)
		case "shares", "share_count":
			m.Shares = asCount(value)
		case "reactions":
			if nested, ok := value.(map[string]any); ok {
				for name, v := range nested {
					m.Reactions[name] = asCount(v)
				}
			}
		default:
			if n, ok := value.(float64); ok {
				m.Reactions[key] = int64(n)
			}
		}
	}

	return m
}

// asCount coerces the JSON number shapes the platform emits
func asCount(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
