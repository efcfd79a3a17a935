package interactions

import (
	"context"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/logger"
)

// Publisher posts a drafted record to the platform under the record's
// persona identity
type Publisher struct {
	platform contracts.Publisher
	sessions *Sessions
	logger   *logger.Logger
}

// NewPublisher creates the publishing adapter
func NewPublisher(platform contracts.Publisher, sessions *Sessions, log *logger.Logger) *Publisher {
	return &Publisher{
		platform: platform,
		sessions: sessions,
		logger:   log.WithField("module", "interactions"),
	}
}

// Publish pushes the record's content to the platform. A rejected
// token gets one fresh login before the failure is surfaced.
func (p *Publisher) Publish(ctx context.Context, rec *contracts.PostRecord) (*contracts.PublishResult, error) {
	token, err := p.sessions.Token(ctx, rec.PersonaID)
	if err != nil {
		return nil, err
	}

	result, err := p.platform.Publish(ctx, token, rec.ContentTitle, rec.ContentBody)
	if err == nil {
		return result, nil
	}
	if !contracts.IsPermanent(err) {
		return nil, err
	}

	// Cached tokens expire server-side; retry once with a fresh login
	p.logger.WithField("persona_id", rec.PersonaID).Warn("Publish rejected, refreshing session")
	token, rerr := p.sessions.Refresh(ctx, rec.PersonaID)
	if rerr != nil {
		return nil, err
	}
	return p.platform.Publish(ctx, token, rec.ContentTitle, rec.ContentBody)
}
