package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vox/backend/internal/assign"
	"github.com/wonny/vox/backend/internal/classify"
	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/logger"
)

type fakeStore struct {
	records map[string]*contracts.PostRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*contracts.PostRecord)}
}

func (f *fakeStore) ListByState(ctx context.Context, states ...contracts.LifecycleState) ([]*contracts.PostRecord, error) {
	return nil, nil
}

func (f *fakeStore) ListByTopic(ctx context.Context, topicID string) ([]*contracts.PostRecord, error) {
	var out []*contracts.PostRecord
	for _, rec := range f.records {
		if rec.TopicID == topicID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, postID string) (*contracts.PostRecord, error) {
	return f.records[postID], nil
}

func (f *fakeStore) Create(ctx context.Context, rec *contracts.PostRecord) error {
	if _, exists := f.records[rec.PostID]; exists {
		return contracts.ErrDuplicateSkip
	}
	f.records[rec.PostID] = rec
	return nil
}

func (f *fakeStore) Update(ctx context.Context, rec *contracts.PostRecord) error {
	f.records[rec.PostID] = rec
	return nil
}

func (f *fakeStore) AppendMetrics(ctx context.Context, m *contracts.EngagementMetrics) error {
	return nil
}

type fakeClassifier struct {
	calls int
	cls   *contracts.Classification
	err   error
}

func (f *fakeClassifier) Classify(ctx context.Context, topic contracts.Topic) (*contracts.Classification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cls, nil
}

type fakeMarket struct {
	stocks []contracts.Stock
	err    error
}

func (f *fakeMarket) StocksForTopic(ctx context.Context, topic contracts.Topic) ([]contracts.Stock, error) {
	return f.stocks, f.err
}

func (f *fakeMarket) LimitUpStocks(ctx context.Context) ([]contracts.Stock, error) {
	return f.stocks, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
		Personas: []config.Persona{
			{ID: "p1", Name: "가치투자 김부장", Style: "value"},
			{ID: "p2", Name: "모멘텀 이대리", Style: "momentum"},
		},
		Pipeline: config.PipelineConfig{MaxAssignmentsPerTopic: 2},
	}
}

type fixture struct {
	store      *fakeStore
	classifier *fakeClassifier
	market     *fakeMarket
	manager    *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	log := logger.New(cfg)

	f := &fixture{
		store: newFakeStore(),
		classifier: &fakeClassifier{cls: &contracts.Classification{
			PersonaTags: []string{"value"},
			Confidence:  0.9,
		}},
		market: &fakeMarket{},
	}

	resolver := assign.NewResolver(f.market, nil, log)
	engine := assign.NewEngine(f.store, resolver, cfg, nil, log)
	f.manager = NewManager(classify.New(f.classifier, nil, log), engine, f.market, log)
	return f
}

func TestExecute_UnknownKindNoSideEffects(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{Kind: "mystery"})

	var cfgErr *contracts.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, f.store.records)
	assert.Zero(t, f.classifier.calls)
}

func TestExecute_TrendingTopics(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind:     contracts.TriggerTrendingTopic,
		Keywords: []string{"반도체 슈퍼사이클", "", "2차전지"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 4, result.Generated, "two personas per topic")
	assert.Len(t, result.Errors, 1, "empty keyword reported, siblings unaffected")
	assert.Equal(t, 2, f.classifier.calls)
	assert.Len(t, f.store.records, 4)
}

func TestExecute_LimitUp(t *testing.T) {
	f := newFixture(t)
	f.market.stocks = []contracts.Stock{
		{Code: "005930", Name: "삼성전자"},
		{Code: "000660", Name: "SK하이닉스"},
	}

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind: contracts.TriggerLimitUp,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 4, result.Generated)
}

func TestExecute_LimitUpLookupFailureIsolated(t *testing.T) {
	f := newFixture(t)
	f.market.err = errors.New("portal down")

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind: contracts.TriggerLimitUp,
	})
	require.NoError(t, err, "handler failure is a result entry, not an execute failure")

	assert.Zero(t, result.Processed)
	assert.Len(t, result.Errors, 1)
	assert.Empty(t, f.store.records)
}

func TestExecute_StockListValidation(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind:       contracts.TriggerStockList,
		StockCodes: []string{"005930", "bogus", "000660"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Len(t, result.Errors, 1)
}

func TestExecute_NewsEvent(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind: contracts.TriggerNewsEvent,
		Payload: map[string]string{
			"id":    "evt-77",
			"title": "금리 동결 발표",
			"body":  "한국은행이 기준금리를 동결했다",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Contains(t, f.store.records, "news-evt-77-p1")
}

func TestExecute_NewsEventMissingTitle(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind:    contracts.TriggerNewsEvent,
		Payload: map[string]string{"body": "제목 없는 이벤트"},
	})
	require.NoError(t, err)

	assert.Zero(t, result.Processed)
	assert.Len(t, result.Errors, 1)
}

func TestExecute_EarningsReport(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Execute(context.Background(), contracts.TriggerConfig{
		Kind:       contracts.TriggerEarningsReport,
		StockCodes: []string{"005930"},
		Payload:    map[string]string{"period": "2025Q1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Contains(t, f.store.records, "earnings-2025Q1-005930-p1")
}

// Re-firing the same trigger creates no duplicate records
func TestExecute_Rerun(t *testing.T) {
	f := newFixture(t)
	cfg := contracts.TriggerConfig{
		Kind:     contracts.TriggerTrendingTopic,
		Keywords: []string{"반도체"},
	}
	ctx := context.Background()

	first, err := f.manager.Execute(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Generated)

	second, err := f.manager.Execute(ctx, cfg)
	require.NoError(t, err)
	assert.Zero(t, second.Generated)
	assert.Len(t, f.store.records, 2)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "rate-cut", slug("Rate Cut"))
	assert.Equal(t, "반도체", slug(" 반도체 "))
}
