package classify

import (
	"context"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// Classifier tags topics with persona/industry/event/stock categories.
// Classification never aborts the pipeline: collaborator failures produce
// a deterministic degraded result instead.
// ⭐ SSOT: 토픽 분류는 여기서만
type Classifier struct {
	client contracts.TextClassifier
	cache  *redis.Cache
	logger *logger.Logger
}

// New creates a new classifier. cache may be nil.
func New(client contracts.TextClassifier, cache *redis.Cache, log *logger.Logger) *Classifier {
	return &Classifier{
		client: client,
		cache:  cache,
		logger: log.WithField("module", "classify"),
	}
}

// degraded is the deterministic fallback classification
func degraded() contracts.Classification {
	return contracts.Classification{
		PersonaTags: []string{"general"},
		Confidence:  0,
	}
}

// Classify tags one topic. The returned classification is always usable;
// on collaborator failure it carries one generic tag and zero confidence,
// degrading downstream specificity rather than failing.
func (c *Classifier) Classify(ctx context.Context, topic contracts.Topic) contracts.Classification {
	if c.cache != nil {
		var cached contracts.Classification
		if found, _ := c.cache.Get(ctx, redis.ClassificationKey(topic.ID), &cached); found {
			return cached
		}
	}

	result, err := c.client.Classify(ctx, topic)
	if err != nil {
		c.logger.WithError(err).WithField("topic_id", topic.ID).
			Warn("Classification failed, degrading")
		return degraded()
	}
	if result == nil {
		return degraded()
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, redis.ClassificationKey(topic.ID), result, redis.TTLMedium)
	}

	c.logger.WithFields(map[string]interface{}{
		"topic_id":   topic.ID,
		"personas":   result.PersonaTags,
		"stocks":     result.StockTags,
		"confidence": result.Confidence,
	}).Debug("Topic classified")

	return *result
}

// Apply writes a classification onto a topic's tags. Topics are
// immutable after this point.
func Apply(topic *contracts.Topic, cls contracts.Classification) {
	topic.Tags = contracts.CategoryTags{
		Persona:  cls.PersonaTags,
		Industry: cls.IndustryTags,
		Event:    cls.EventTags,
		Stock:    cls.StockTags,
	}
}
