package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/config"
	"github.com/wonny/vox/backend/pkg/logger"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeStore is an in-memory record store whose Update stamps UpdatedAt
// from the test clock, mirroring the real repository
type fakeStore struct {
	records map[string]*contracts.PostRecord
	metrics []*contracts.EngagementMetrics
	clock   *fakeClock

	listErr    error
	metricsErr error
}

func newFakeStore(clock *fakeClock) *fakeStore {
	return &fakeStore{records: make(map[string]*contracts.PostRecord), clock: clock}
}

func (f *fakeStore) ListByState(ctx context.Context, states ...contracts.LifecycleState) ([]*contracts.PostRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*contracts.PostRecord
	for _, rec := range f.records {
		for _, s := range states {
			if rec.State == s {
				out = append(out, rec)
			}
		}
	}
	return out, nil
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
	rec, ok := f.records[postID]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func (f *fakeStore) Create(ctx context.Context, rec *contracts.PostRecord) error {
	if _, exists := f.records[rec.PostID]; exists {
		return contracts.ErrDuplicateSkip
	}
	f.records[rec.PostID] = rec
	return nil
}

func (f *fakeStore) Update(ctx context.Context, rec *contracts.PostRecord) error {
	rec.UpdatedAt = f.clock.now()
	f.records[rec.PostID] = rec
	return nil
}

func (f *fakeStore) AppendMetrics(ctx context.Context, m *contracts.EngagementMetrics) error {
	if f.metricsErr != nil {
		return f.metricsErr
	}
	f.metrics = append(f.metrics, m)
	return nil
}

type fakeGenerator struct {
	calls int
	errs  []error // popped per call; empty means success
}

func (g *fakeGenerator) Generate(ctx context.Context, topic contracts.Topic, persona contracts.Persona, stock *contracts.Stock) (*contracts.GeneratedContent, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return nil, err
	}
	return &contracts.GeneratedContent{Title: "제목", Body: "본문"}, nil
}

type fakePublisher struct {
	calls int
	errs  []error
}

func (p *fakePublisher) Publish(ctx context.Context, rec *contracts.PostRecord) (*contracts.PublishResult, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return nil, err
	}
	return &contracts.PublishResult{PlatformPostID: "plat-" + rec.PostID}, nil
}

type fakeCollector struct {
	calls int
	errs  []error
}

func (c *fakeCollector) Collect(ctx context.Context, rec *contracts.PostRecord, h contracts.Horizon) (*contracts.EngagementMetrics, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return nil, err
	}
	return &contracts.EngagementMetrics{
		PostID:  rec.PostID,
		Horizon: h,
		Likes:   10,
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
		Personas: []config.Persona{
			{ID: "p1", Name: "가치투자 김부장", Style: "value"},
		},
		Pipeline: config.PipelineConfig{
			TickInterval: 10 * time.Minute,
			MaxRetries:   3,
			BackoffBase:  time.Minute,
			BackoffCap:   30 * time.Minute,
			Tolerance1h:  5 * time.Minute,
			Tolerance1d:  30 * time.Minute,
			Tolerance7d:  30 * time.Minute,
		},
	}
}

type fixture struct {
	clock     *fakeClock
	store     *fakeStore
	generator *fakeGenerator
	publisher *fakePublisher
	collector *fakeCollector
	scheduler *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	clock := &fakeClock{t: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
	f := &fixture{
		clock:     clock,
		store:     newFakeStore(clock),
		generator: &fakeGenerator{},
		publisher: &fakePublisher{},
		collector: &fakeCollector{},
	}
	f.scheduler = NewScheduler(f.store, f.generator, f.publisher, f.collector, cfg, nil, logger.New(cfg))
	f.scheduler.now = clock.now
	return f
}

func (f *fixture) seed(state contracts.LifecycleState) *contracts.PostRecord {
	rec := contracts.NewPostRecord("T", "p1", f.clock.now())
	rec.State = state
	f.store.records[rec.PostID] = rec
	return rec
}

func TestRunTick_GenerateAdvances(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StateReadyToGen)

	require.NoError(t, f.scheduler.RunTick(context.Background()))

	assert.Equal(t, contracts.StateReadyToPost, rec.State)
	assert.Equal(t, "제목", rec.ContentTitle)
	assert.Equal(t, "본문", rec.ContentBody)
	assert.Zero(t, rec.RetryCount)
}

func TestRunTick_PublishSetsTimestampAndPlatformID(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StateReadyToPost)

	require.NoError(t, f.scheduler.RunTick(context.Background()))

	assert.Equal(t, contracts.StatePublished, rec.State)
	require.NotNil(t, rec.PublishedAt)
	assert.Equal(t, f.clock.now(), *rec.PublishedAt)
	assert.Equal(t, "plat-T-p1", rec.PlatformPostID)
}

// Generator fails three consecutive times with max_retries=3: the
// record becomes terminal and later ticks never touch it again
func TestRunTick_RetryBudgetExhaustion(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StateReadyToGen)
	f.generator.errs = []error{
		contracts.NewTransient("generate", errors.New("timeout")),
		contracts.NewTransient("generate", errors.New("timeout")),
		contracts.NewTransient("generate", errors.New("timeout")),
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.scheduler.RunTick(ctx))
		f.clock.advance(time.Hour) // past any backoff
	}

	assert.Equal(t, contracts.StateError, rec.State)
	assert.Equal(t, 3, rec.RetryCount)
	assert.Contains(t, rec.LastError, "timeout")

	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 3, f.generator.calls, "terminal record must not be regenerated")
}

// A failed record is not retried until its backoff has elapsed
func TestRunTick_BackoffGating(t *testing.T) {
	f := newFixture(t)
	f.seed(contracts.StateReadyToGen)
	f.generator.errs = []error{contracts.NewTransient("generate", errors.New("503"))}

	ctx := context.Background()
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 1, f.generator.calls)

	// Immediately again: backoff (base*2^1 = 2m) has not elapsed
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 1, f.generator.calls)

	f.clock.advance(3 * time.Minute)
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 2, f.generator.calls)

	rec := f.store.records["T-p1"]
	assert.Equal(t, contracts.StateReadyToPost, rec.State)
	assert.Zero(t, rec.RetryCount, "retry bookkeeping cleared on success")
}

// A permanent failure is terminal on the first attempt
func TestRunTick_PermanentFailureTerminal(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StateReadyToPost)
	f.publisher.errs = []error{contracts.NewPermanent("publish", errors.New("401 unauthorized"))}

	require.NoError(t, f.scheduler.RunTick(context.Background()))

	assert.Equal(t, contracts.StateError, rec.State)
	assert.Equal(t, 1, f.publisher.calls)
	assert.Contains(t, rec.LastError, "401")
}

// One record's failure never blocks its siblings in the same tick
func TestRunTick_RecordFailureIsolated(t *testing.T) {
	f := newFixture(t)
	bad := contracts.NewPostRecord("T1", "p1", f.clock.now())
	bad.State = contracts.StateReadyToGen
	good := contracts.NewPostRecord("T2", "p1", f.clock.now())
	good.State = contracts.StateReadyToGen
	f.store.records[bad.PostID] = bad
	f.store.records[good.PostID] = good

	// One failure in the queue; whichever record draws it, the other
	// must still advance
	f.generator.errs = []error{contracts.NewTransient("generate", errors.New("timeout"))}

	require.NoError(t, f.scheduler.RunTick(context.Background()))
	assert.Equal(t, 2, f.generator.calls)

	states := []contracts.LifecycleState{bad.State, good.State}
	assert.Contains(t, states, contracts.StateReadyToPost)
	assert.Contains(t, states, contracts.StateReadyToGen)
}

// Store unavailability aborts the whole tick
func TestRunTick_StoreFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = errors.New("connection refused")

	err := f.scheduler.RunTick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// Published at T0: a tick at T0+55m is too early for the 1h horizon,
// T0+62m collects, T0+3h does not re-collect
func TestCollect_WindowCorrectness(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StatePublished)
	t0 := f.clock.now()
	rec.PublishedAt = &t0

	ctx := context.Background()

	f.clock.advance(55 * time.Minute)
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 0, f.collector.calls)
	assert.Equal(t, contracts.CollectionPending, rec.CollectionStatusFor(contracts.Horizon1h))

	f.clock.advance(7 * time.Minute) // T0+62m
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 1, f.collector.calls)
	assert.Equal(t, contracts.CollectionDone, rec.CollectionStatusFor(contracts.Horizon1h))
	require.NotNil(t, rec.CollectedAt[contracts.Horizon1h])
	assert.Equal(t, contracts.StateCollecting, rec.State)
	require.Len(t, f.store.metrics, 1)
	assert.Equal(t, contracts.Horizon1h, f.store.metrics[0].Horizon)

	f.clock.advance(2 * time.Hour) // T0+3h, between 1h and 1d windows
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, 1, f.collector.calls, "done horizon must never be re-collected")
}

// A collection failure inside the window stays pending for the next tick
func TestCollect_FailureInsideWindowRetries(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StatePublished)
	t0 := f.clock.now()
	rec.PublishedAt = &t0
	f.collector.errs = []error{contracts.NewTransient("engagement", errors.New("502"))}

	ctx := context.Background()

	f.clock.advance(58 * time.Minute)
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, contracts.CollectionPending, rec.CollectionStatusFor(contracts.Horizon1h))

	f.clock.advance(4 * time.Minute) // still inside +-5m
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, contracts.CollectionDone, rec.CollectionStatusFor(contracts.Horizon1h))
}

// A horizon whose window elapsed without success is error forever;
// the record itself keeps going
func TestCollect_WindowMissedIsHorizonTerminal(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StatePublished)
	t0 := f.clock.now()
	rec.PublishedAt = &t0

	ctx := context.Background()

	f.clock.advance(2 * time.Hour) // 1h window long gone
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, contracts.CollectionError, rec.CollectionStatusFor(contracts.Horizon1h))
	assert.Equal(t, contracts.StateCollecting, rec.State)
	assert.Equal(t, 0, f.collector.calls)

	// 1d window still reachable
	f.clock.advance(22 * time.Hour)
	require.NoError(t, f.scheduler.RunTick(ctx))
	assert.Equal(t, contracts.CollectionDone, rec.CollectionStatusFor(contracts.Horizon1d))
}

// When every horizon is terminal the record finalizes to done
func TestCollect_FinalizesWhenAllHorizonsTerminal(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StateCollecting)
	t0 := f.clock.now()
	rec.PublishedAt = &t0
	rec.Collection[contracts.Horizon1h] = contracts.CollectionDone
	rec.Collection[contracts.Horizon1d] = contracts.CollectionError

	f.clock.advance(7*24*time.Hour + time.Minute)
	require.NoError(t, f.scheduler.RunTick(context.Background()))

	assert.Equal(t, contracts.CollectionDone, rec.CollectionStatusFor(contracts.Horizon7d))
	assert.Equal(t, contracts.StateDone, rec.State)
}

// Records without a publish timestamp are never selected for collection
func TestCollect_SkipsRecordWithoutPublishTimestamp(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(contracts.StatePublished)
	rec.PublishedAt = nil

	f.clock.advance(2 * time.Hour)
	require.NoError(t, f.scheduler.RunTick(context.Background()))
	assert.Equal(t, 0, f.collector.calls)
	assert.Equal(t, contracts.StatePublished, rec.State)
}

func TestPolicy_Backoff(t *testing.T) {
	p := NewPolicy(testConfig())

	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 2*time.Minute, p.Backoff(1))
	assert.Equal(t, 4*time.Minute, p.Backoff(2))
	assert.Equal(t, 8*time.Minute, p.Backoff(3))
	assert.Equal(t, 30*time.Minute, p.Backoff(10), "capped")
}

func TestPolicy_Window(t *testing.T) {
	p := NewPolicy(testConfig())
	published := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		horizon contracts.Horizon
		at      time.Duration
		want    WindowState
	}{
		{"1h too early", contracts.Horizon1h, 54 * time.Minute, WindowBefore},
		{"1h lower edge excluded", contracts.Horizon1h, 55 * time.Minute, WindowBefore},
		{"1h just inside", contracts.Horizon1h, 56 * time.Minute, WindowOpen},
		{"1h exact", contracts.Horizon1h, time.Hour, WindowOpen},
		{"1h upper edge", contracts.Horizon1h, 65 * time.Minute, WindowOpen},
		{"1h missed", contracts.Horizon1h, 66 * time.Minute, WindowMissed},
		{"1d open", contracts.Horizon1d, 24*time.Hour + 20*time.Minute, WindowOpen},
		{"1d missed", contracts.Horizon1d, 25 * time.Hour, WindowMissed},
		{"7d early", contracts.Horizon7d, 6 * 24 * time.Hour, WindowBefore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Window(published, tt.horizon, published.Add(tt.at))
			assert.Equal(t, tt.want, got)
		})
	}
}
