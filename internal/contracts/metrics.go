package contracts

import "time"

// EngagementMetrics is one normalized engagement sample.
// Append-only: exactly one row per (post, horizon).
// ⭐ SSOT: 인게이지먼트 스키마는 여기서만
type EngagementMetrics struct {
	PostID  string
	Horizon Horizon

	Likes    int64
	Comments int64
	Shares   int64

	// Reactions flattens platform-specific reaction types into a named map
	Reactions map[string]int64

	CollectedAt time.Time
}

// Total returns the combined engagement count across all signals
func (m *EngagementMetrics) Total() int64 {
	total := m.Likes + m.Comments + m.Shares
	for _, v := range m.Reactions {
		total += v
	}
	return total
}
