package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// ContentPublisher pushes a finished record to the publishing platform
type ContentPublisher interface {
	Publish(ctx context.Context, rec *contracts.PostRecord) (*contracts.PublishResult, error)
}

// MetricsCollector fetches engagement for one record at one horizon.
// It never mutates lifecycle state.
type MetricsCollector interface {
	Collect(ctx context.Context, rec *contracts.PostRecord, h contracts.Horizon) (*contracts.EngagementMetrics, error)
}

// Scheduler is the lifecycle tick state machine. Each tick advances
// records through generation, publication and multi-horizon engagement
// collection. Per-record failures are caught at the record boundary so
// a tick always processes every due record; only a store read failure
// aborts the tick (the polling loop is the outer retry).
// ⭐ SSOT: 상태 전이는 여기서만 수행함
type Scheduler struct {
	store     contracts.RecordStore
	generator contracts.ContentGenerator
	publisher ContentPublisher
	collector MetricsCollector
	policy    *Policy
	cfg       *config.Config
	cache     *redis.Cache
	logger    *logger.Logger

	now func() time.Time
}

// NewScheduler wires the tick state machine. cache may be nil.
func NewScheduler(
	store contracts.RecordStore,
	generator contracts.ContentGenerator,
	publisher ContentPublisher,
	collector MetricsCollector,
	cfg *config.Config,
	cache *redis.Cache,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		store:     store,
		generator: generator,
		publisher: publisher,
		collector: collector,
		policy:    NewPolicy(cfg),
		cfg:       cfg,
		cache:     cache,
		logger:    log.WithField("module", "lifecycle"),
		now:       time.Now,
	}
}

// RunTick runs one full pass: generation, publication, collection.
// The snapshot of due records is taken up front, so a record advances
// at most one stage per tick. The error return is reserved for store
// unavailability.
func (s *Scheduler) RunTick(ctx context.Context) error {
	start := s.now()

	toGenerate, err := s.store.ListByState(ctx, contracts.StateReadyToGen)
	if err != nil {
		return fmt.Errorf("list ready_to_gen: %w", err)
	}
	toPublish, err := s.store.ListByState(ctx, contracts.StateReadyToPost)
	if err != nil {
		return fmt.Errorf("list ready_to_post: %w", err)
	}
	toCollect, err := s.store.ListByState(ctx, contracts.StatePublished, contracts.StateCollecting)
	if err != nil {
		return fmt.Errorf("list published/collecting: %w", err)
	}

	s.generatePhase(ctx, toGenerate)
	s.publishPhase(ctx, toPublish)
	s.collectPhase(ctx, toCollect)

	s.logger.WithFields(map[string]interface{}{
		"to_generate": len(toGenerate),
		"to_publish":  len(toPublish),
		"to_collect":  len(toCollect),
		"elapsed":     s.now().Sub(start).String(),
	}).Info("Tick complete")
	return nil
}

// generatePhase turns ready_to_gen records into drafted content
func (s *Scheduler) generatePhase(ctx context.Context, records []*contracts.PostRecord) {
	for _, rec := range records {
		if !s.policy.RetryEligible(rec, s.now()) {
			continue
		}

		persona, ok := s.cfg.PersonaByID(rec.PersonaID)
		if !ok {
			s.failTerminal(ctx, rec, fmt.Sprintf("persona %s not configured", rec.PersonaID))
			continue
		}

		content, err := s.generator.Generate(ctx, s.topicFor(ctx, rec), contracts.Persona{
			ID:    persona.ID,
			Name:  persona.Name,
			Style: persona.Style,
		}, rec.AssignedStock)
		if err != nil {
			s.failStep(ctx, rec, "generate", err)
			continue
		}

		rec.ContentTitle = content.Title
		rec.ContentBody = content.Body
		s.advance(ctx, rec, contracts.StateReadyToPost)
	}
}

// publishPhase pushes ready_to_post records to the platform
func (s *Scheduler) publishPhase(ctx context.Context, records []*contracts.PostRecord) {
	for _, rec := range records {
		if !s.policy.RetryEligible(rec, s.now()) {
			continue
		}

		result, err := s.publisher.Publish(ctx, rec)
		if err != nil {
			s.failStep(ctx, rec, "publish", err)
			continue
		}

		publishedAt := result.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = s.now()
		}
		rec.PublishedAt = &publishedAt
		rec.PlatformPostID = result.PlatformPostID
		s.advance(ctx, rec, contracts.StatePublished)
	}
}

// collectPhase attempts each pending horizon whose tolerance window is
// open. A horizon whose window has elapsed without success is marked
// error permanently; other horizons and the record are unaffected.
func (s *Scheduler) collectPhase(ctx context.Context, records []*contracts.PostRecord) {
	for _, rec := range records {
		if rec.PublishedAt == nil {
			// Window math needs a publish timestamp
			s.logger.WithField("post_id", rec.PostID).Error("Published record without publish timestamp")
			continue
		}
		s.collectRecord(ctx, rec)
	}
}

func (s *Scheduler) collectRecord(ctx context.Context, rec *contracts.PostRecord) {
	now := s.now()
	changed := false

	for _, h := range contracts.AllHorizons() {
		if rec.CollectionStatusFor(h).Terminal() {
			continue
		}

		switch s.policy.Window(*rec.PublishedAt, h, now) {
		case WindowBefore:
			continue

		case WindowMissed:
			missErr := &contracts.WindowMissedError{PostID: rec.PostID, Horizon: h}
			s.logger.WithField("post_id", rec.PostID).WithField("horizon", string(h)).
				Warn(missErr.Error())
			rec.Collection[h] = contracts.CollectionError
			rec.LastError = missErr.Error()
			changed = true

		case WindowOpen:
			metrics, err := s.collector.Collect(ctx, rec, h)
			if err != nil {
				// Still inside the window: stay pending, retry next tick
				s.logger.WithError(err).WithFields(map[string]interface{}{
					"post_id": rec.PostID,
					"horizon": string(h),
				}).Warn("Collection attempt failed")
				continue
			}
			if err := s.store.AppendMetrics(ctx, metrics); err != nil {
				// Append is idempotent per (post, horizon); safe to retry
				s.logger.WithError(err).WithField("post_id", rec.PostID).
					Error("Failed to persist metrics")
				continue
			}
			at := now
			rec.Collection[h] = contracts.CollectionDone
			rec.CollectedAt[h] = &at
			changed = true
		}
	}

	next := rec.State
	if rec.AllHorizonsTerminal() {
		next = contracts.StateDone
	} else if changed && rec.State == contracts.StatePublished {
		next = contracts.StateCollecting
	}

	if !changed && next == rec.State {
		return
	}

	rec.State = next
	if err := s.store.Update(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("post_id", rec.PostID).
			Error("Failed to persist collection result")
	}
}

// advance moves a record forward and clears its retry bookkeeping.
// State and payload are written together in one update.
func (s *Scheduler) advance(ctx context.Context, rec *contracts.PostRecord, next contracts.LifecycleState) {
	prev := rec.State
	rec.State = next
	rec.RetryCount = 0
	rec.LastError = ""

	if err := s.store.Update(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("post_id", rec.PostID).
			Error("Failed to persist transition")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"post_id": rec.PostID,
		"from":    string(prev),
		"to":      string(next),
	}).Info("Record advanced")
}

// failStep applies the retry policy after a generation or publish
// failure. Transient errors burn one retry; permanent errors and an
// exhausted budget are terminal.
func (s *Scheduler) failStep(ctx context.Context, rec *contracts.PostRecord, op string, err error) {
	rec.RetryCount++
	rec.LastError = err.Error()

	terminal := contracts.IsPermanent(err) || s.policy.Exhausted(rec.RetryCount)
	if terminal {
		rec.State = contracts.StateError
	}

	if uerr := s.store.Update(ctx, rec); uerr != nil {
		s.logger.WithError(uerr).WithField("post_id", rec.PostID).
			Error("Failed to persist failure")
		return
	}

	log := s.logger.WithError(err).WithFields(map[string]interface{}{
		"post_id": rec.PostID,
		"op":      op,
		"retry":   rec.RetryCount,
	})
	if terminal {
		log.Error("Record failed terminally")
	} else {
		log.WithField("backoff", s.policy.Backoff(rec.RetryCount).String()).
			Warn("Step failed, will retry")
	}
}

// failTerminal marks a record error without consuming retries
func (s *Scheduler) failTerminal(ctx context.Context, rec *contracts.PostRecord, reason string) {
	rec.State = contracts.StateError
	rec.LastError = reason

	if err := s.store.Update(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("post_id", rec.PostID).
			Error("Failed to persist failure")
		return
	}
	s.logger.WithField("post_id", rec.PostID).Error(reason)
}

// topicFor rebuilds the topic the record was assigned from. The body
// is cached at assignment time; a cache miss degrades to an ID-only
// topic rather than blocking generation.
func (s *Scheduler) topicFor(ctx context.Context, rec *contracts.PostRecord) contracts.Topic {
	if s.cache != nil {
		var topic contracts.Topic
		if found, _ := s.cache.Get(ctx, redis.TopicKey(rec.TopicID), &topic); found {
			return topic
		}
	}
	return contracts.Topic{ID: rec.TopicID}
}
