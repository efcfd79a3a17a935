package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/logger"
)

type fakeClient struct {
	cls *contracts.Classification
	err error
}

func (f *fakeClient) Classify(ctx context.Context, topic contracts.Topic) (*contracts.Classification, error) {
	return f.cls, f.err
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func TestClassify_PassesThrough(t *testing.T) {
	c := New(&fakeClient{cls: &contracts.Classification{
		PersonaTags:  []string{"value", "dividend"},
		IndustryTags: []string{"semiconductor"},
		StockTags:    []string{"삼성전자"},
		Confidence:   0.87,
	}}, nil, testLogger())

	cls := c.Classify(context.Background(), contracts.Topic{ID: "T", Title: "반도체"})

	assert.False(t, cls.Degraded())
	assert.Equal(t, []string{"value", "dividend"}, cls.PersonaTags)
	assert.Equal(t, 0.87, cls.Confidence)
}

func TestClassify_DegradesOnFailure(t *testing.T) {
	c := New(&fakeClient{err: errors.New("classifier down")}, nil, testLogger())

	cls := c.Classify(context.Background(), contracts.Topic{ID: "T"})

	assert.True(t, cls.Degraded())
	assert.Equal(t, []string{"general"}, cls.PersonaTags)
	assert.Zero(t, cls.Confidence)
}

func TestClassify_DegradesOnNilResult(t *testing.T) {
	c := New(&fakeClient{}, nil, testLogger())

	cls := c.Classify(context.Background(), contracts.Topic{ID: "T"})
	assert.True(t, cls.Degraded())
}

func TestApply(t *testing.T) {
	topic := contracts.Topic{ID: "T"}
	Apply(&topic, contracts.Classification{
		PersonaTags: []string{"momentum"},
		EventTags:   []string{"earnings"},
	})

	require.Equal(t, []string{"momentum"}, topic.Tags.Persona)
	assert.Equal(t, []string{"earnings"}, topic.Tags.Event)
	assert.Empty(t, topic.Tags.Stock)
}
