package interactions

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// Sessions owns persona login tokens for the publishing platform.
// Tokens are cached in redis when available, with an in-memory
// fallback, so a restart or a redis outage only costs a re-login.
// ⭐ SSOT: 페르소나 세션 토큰은 여기서만 관리함
type Sessions struct {
	platform contracts.Publisher
	cfg      *config.Config
	cache    *redis.Cache
	logger   *logger.Logger

	mu     sync.Mutex
	tokens map[string]string
}

// NewSessions creates the session manager. cache may be nil.
func NewSessions(platform contracts.Publisher, cfg *config.Config, cache *redis.Cache, log *logger.Logger) *Sessions {
	return &Sessions{
		platform: platform,
		cfg:      cfg,
		cache:    cache,
		logger:   log.WithField("module", "interactions"),
		tokens:   make(map[string]string),
	}
}

// Token returns a login token for the persona, logging in if needed
func (s *Sessions) Token(ctx context.Context, personaID string) (string, error) {
	s.mu.Lock()
	if token, ok := s.tokens[personaID]; ok {
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	if s.cache != nil {
		var token string
		if found, _ := s.cache.Get(ctx, redis.SessionTokenKey(personaID), &token); found && token != "" {
			s.remember(personaID, token)
			return token, nil
		}
	}

	return s.login(ctx, personaID)
}

// Refresh drops any cached token and logs in again. Used after the
// platform rejects a token that was presumed valid.
func (s *Sessions) Refresh(ctx context.Context, personaID string) (string, error) {
	s.Invalidate(ctx, personaID)
	return s.login(ctx, personaID)
}

// Invalidate forgets a persona's token everywhere
func (s *Sessions) Invalidate(ctx context.Context, personaID string) {
	s.mu.Lock()
	delete(s.tokens, personaID)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, redis.SessionTokenKey(personaID)); err != nil {
			s.logger.WithError(err).WithField("persona_id", personaID).Warn("Token cache delete failed")
		}
	}
}

func (s *Sessions) login(ctx context.Context, personaID string) (string, error) {
	persona, ok := s.cfg.PersonaByID(personaID)
	if !ok || persona.Username == "" {
		return "", &contracts.ConfigurationError{
			Field:  "personas",
			Reason: fmt.Sprintf("no credentials for persona %s", personaID),
		}
	}

	token, err := s.platform.Login(ctx, persona.Username, persona.Password)
	if err != nil {
		return "", err
	}

	s.remember(personaID, token)
	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.SessionTokenKey(personaID), token, redis.TTLToken); err != nil {
			s.logger.WithError(err).WithField("persona_id", personaID).Warn("Token cache write failed")
		}
	}

	s.logger.WithField("persona_id", personaID).Info("Persona logged in")
	return token, nil
}

func (s *Sessions) remember(personaID, token string) {
	s.mu.Lock()
	s.tokens[personaID] = token
	s.mu.Unlock()
}
