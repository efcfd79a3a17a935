package contracts

import "time"

// Topic is one unit of commentary input, immutable after classification
// ⭐ SSOT: 토픽 스키마는 여기서만
type Topic struct {
	ID         string
	Title      string
	RawContent string
	Tags       CategoryTags
	CreatedAt  time.Time
}

// CategoryTags holds the classification result attached to a topic
type CategoryTags struct {
	Persona  []string `json:"persona"`
	Industry []string `json:"industry"`
	Event    []string `json:"event"`
	Stock    []string `json:"stock"`
}

// Classification is the raw output of the text classifier
type Classification struct {
	PersonaTags  []string `json:"persona_tags"`
	IndustryTags []string `json:"industry_tags"`
	EventTags    []string `json:"event_tags"`
	StockTags    []string `json:"stock_tags"`
	Confidence   float64  `json:"confidence"`
}

// Degraded reports whether the classification is the fallback produced
// when the classifier was unavailable or replied malformed.
func (c Classification) Degraded() bool {
	return c.Confidence == 0
}

// StockResolution is the outcome of looking up stocks for a topic
type StockResolution struct {
	HasStocks bool
	Stocks    []Stock
}

// ProcessedTopic summarizes what the assignment engine did for one topic
type ProcessedTopic struct {
	TopicID string
	Created []string // post IDs created
	Skipped []string // post IDs skipped as duplicates
	Errors  []string // isolated per-persona failures
}
