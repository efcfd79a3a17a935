package contracts

import (
	"context"
	"time"
)

// RecordStore persists post records and engagement metrics
// ⭐ SSOT: 레코드 저장소 인터페이스는 여기서만 정의
type RecordStore interface {
	// ListByState returns records in any of the given lifecycle states
	ListByState(ctx context.Context, states ...LifecycleState) ([]*PostRecord, error)

	// ListByTopic returns all records for a topic (dedup checkpoint)
	ListByTopic(ctx context.Context, topicID string) ([]*PostRecord, error)

	// Get returns a single record by post ID
	Get(ctx context.Context, postID string) (*PostRecord, error)

	// Create inserts a new record; an existing post ID must not be overwritten
	Create(ctx context.Context, rec *PostRecord) error

	// Update writes a record's state and payload fields atomically
	Update(ctx context.Context, rec *PostRecord) error

	// AppendMetrics appends one engagement sample (one row per post+horizon)
	AppendMetrics(ctx context.Context, m *EngagementMetrics) error
}

// GeneratedContent is the output of one content generation call
type GeneratedContent struct {
	Title string
	Body  string
}

// ContentGenerator produces commentary for a topic under a persona
type ContentGenerator interface {
	Generate(ctx context.Context, topic Topic, persona Persona, stock *Stock) (*GeneratedContent, error)
}

// TextClassifier tags a topic with category tags
type TextClassifier interface {
	Classify(ctx context.Context, topic Topic) (*Classification, error)
}

// PublishResult is the outcome of a successful publish call
type PublishResult struct {
	PlatformPostID string
	URL            string
	PublishedAt    time.Time
}

// Publisher is the publishing platform's post-creation API
type Publisher interface {
	Login(ctx context.Context, username, password string) (string, error)
	Publish(ctx context.Context, token, title, body string) (*PublishResult, error)
}

// MetricsAPI is the publishing platform's engagement metrics API.
// The raw payload shape is platform-specific; normalization happens
// in the interaction collector.
type MetricsAPI interface {
	GetEngagement(ctx context.Context, token, platformPostID string) (map[string]any, error)
}

// MarketData looks up stocks related to topics
type MarketData interface {
	StocksForTopic(ctx context.Context, topic Topic) ([]Stock, error)
	LimitUpStocks(ctx context.Context) ([]Stock, error)
}
