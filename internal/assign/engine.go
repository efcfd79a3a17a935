package assign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// Engine pairs personas with topics, derives deterministic post IDs and
// rejects duplicates before anything is written. This is the single
// idempotency checkpoint protecting against duplicate posting when the
// pipeline re-runs after a crash or restart.
// ⭐ SSOT: 페르소나-토픽 매칭과 중복 차단은 여기서만
type Engine struct {
	store       contracts.RecordStore
	resolver    *Resolver
	cache       *redis.Cache
	personas    []config.Persona
	maxPerTopic int
	logger      *logger.Logger
}

// NewEngine creates a new assignment engine. cache may be nil.
func NewEngine(store contracts.RecordStore, resolver *Resolver, cfg *config.Config, cache *redis.Cache, log *logger.Logger) *Engine {
	return &Engine{
		store:       store,
		resolver:    resolver,
		cache:       cache,
		personas:    cfg.Personas,
		maxPerTopic: cfg.Pipeline.MaxAssignmentsPerTopic,
		logger:      log.WithField("module", "assign"),
	}
}

// Process assigns personas to each topic and creates post records.
// A failure for one persona or one topic never aborts its siblings.
func (e *Engine) Process(ctx context.Context, topics []contracts.Topic) ([]contracts.ProcessedTopic, error) {
	results := make([]contracts.ProcessedTopic, 0, len(topics))

	for _, topic := range topics {
		result := e.processTopic(ctx, topic)
		results = append(results, result)
	}

	return results, nil
}

// processTopic handles persona pairing, stock distribution, dedup and
// persistence for one topic
func (e *Engine) processTopic(ctx context.Context, topic contracts.Topic) contracts.ProcessedTopic {
	result := contracts.ProcessedTopic{TopicID: topic.ID}

	personaIDs := e.selectPersonas(topic)
	if len(personaIDs) == 0 {
		result.Errors = append(result.Errors, "no personas configured")
		return result
	}

	// Dedup checkpoint: existing post IDs for this topic
	existing, err := e.store.ListByTopic(ctx, topic.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("dedup query failed: %v", err))
		return result
	}
	taken := make(map[string]bool, len(existing))
	for _, rec := range existing {
		taken[rec.PostID] = true
	}

	// Keep the topic body around for the generation phase, which only
	// sees the record
	if e.cache != nil {
		if err := e.cache.Set(ctx, redis.TopicKey(topic.ID), topic, redis.TTLTopic); err != nil {
			e.logger.WithError(err).WithField("topic_id", topic.ID).Warn("Topic cache write failed")
		}
	}

	// Stock distribution. A resolution failure degrades to stockless
	// generation rather than dropping the topic.
	var stocks []contracts.Stock
	if resolution, err := e.resolver.Resolve(ctx, topic); err != nil {
		e.logger.WithError(err).WithField("topic_id", topic.ID).
			Warn("Stock resolution failed, assigning without stocks")
	} else {
		stocks = resolution.Stocks
	}
	assignment := e.resolver.Assign(stocks, personaIDs)

	now := time.Now()
	for _, personaID := range personaIDs {
		postID := contracts.NewPostID(topic.ID, personaID)

		if taken[postID] {
			e.logger.WithField("post_id", postID).Info("Duplicate post skipped")
			result.Skipped = append(result.Skipped, postID)
			continue
		}

		rec := contracts.NewPostRecord(topic.ID, personaID, now)
		rec.AssignedStock = assignment[personaID]
		rec.State = contracts.StateReadyToGen

		if err := e.store.Create(ctx, rec); err != nil {
			if errors.Is(err, contracts.ErrDuplicateSkip) {
				// Raced with another producer; same outcome as the
				// dedup checkpoint
				result.Skipped = append(result.Skipped, postID)
				continue
			}
			// Isolated: siblings for this topic still run
			e.logger.WithError(err).WithField("post_id", postID).
				Error("Failed to persist assignment")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", postID, err))
			continue
		}

		result.Created = append(result.Created, postID)
	}

	e.logger.WithFields(map[string]interface{}{
		"topic_id": topic.ID,
		"created":  len(result.Created),
		"skipped":  len(result.Skipped),
		"errors":   len(result.Errors),
	}).Info("Topic processed")

	return result
}

// selectPersonas picks the personas for a topic under the capacity
// bound. Personas whose style matches a classification persona tag are
// preferred; remaining slots go to the rest in configured order.
func (e *Engine) selectPersonas(topic contracts.Topic) []string {
	limit := e.maxPerTopic
	if limit <= 0 || limit > len(e.personas) {
		limit = len(e.personas)
	}

	tagged := make(map[string]bool, len(topic.Tags.Persona))
	for _, tag := range topic.Tags.Persona {
		tagged[tag] = true
	}

	ids := make([]string, 0, limit)
	// First pass: style matches
	for _, p := range e.personas {
		if len(ids) >= limit {
			return ids
		}
		if tagged[p.Style] {
			ids = append(ids, p.ID)
		}
	}
	// Second pass: fill remaining slots
	for _, p := range e.personas {
		if len(ids) >= limit {
			break
		}
		if !contains(ids, p.ID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
