package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/repository"
	"ShapeFinder/internal/services/dtw"
	"ShapeFinder/internal/services/ranking"
	"ShapeFinder/pkg/cache"
	pkgkafka "ShapeFinder/pkg/kafka"
	"ShapeFinder/pkg/queue"
)

func monthly(name string, values []float64) *models.TimeSeries {
	ts := make([]time.Time, len(values))
	for i := range ts {
		ts[i] = time.Date(2019, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC)
	}
	s, _ := models.NewTimeSeries(name, ts, values)
	return s
}

func sine(shift int) []float64 {
	out := make([]float64, 24)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * float64(i-shift) / 12)
	}
	return out
}

func noise() []float64 {
	rng := rand.New(rand.NewSource(7))
	out := make([]float64, 24)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

type recordingPublisher struct {
	mu      sync.Mutex
	reports []*models.MatchReport
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, r *models.MatchReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingBroadcaster struct {
	reports []*models.MatchReport
}

func (b *recordingBroadcaster) Broadcast(r *models.MatchReport) { b.reports = append(b.reports, r) }

type countingCache struct {
	mu         sync.Mutex
	data       map[string]models.FeatureSequence
	hits, sets int
}

func (c *countingCache) Get(_ context.Context, s *models.TimeSeries, period int) (models.FeatureSequence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq, ok := c.data[repository.FeatureKey(s, period)]
	if ok {
		c.hits++
	}
	return seq, ok
}

func (c *countingCache) Set(_ context.Context, s *models.TimeSeries, period int, f models.FeatureSequence) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[repository.FeatureKey(s, period)] = f
	return nil
}

type blockingRanker struct{}

func (blockingRanker) Rank(ctx context.Context, _ models.FeatureSequence, _ []models.Candidate, _ int) ([]models.MatchResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixture struct {
	store       *repository.MemorySeriesStore
	cache       *countingCache
	publisher   *recordingPublisher
	broadcaster *recordingBroadcaster
	matcher     *MatcherUseCase
}

func newFixture(t *testing.T, series ...*models.TimeSeries) *fixture {
	t.Helper()
	f := &fixture{
		store:       repository.NewMemorySeriesStore(),
		cache:       &countingCache{data: map[string]models.FeatureSequence{}},
		publisher:   &recordingPublisher{},
		broadcaster: &recordingBroadcaster{},
	}
	for _, s := range series {
		require.NoError(t, f.store.Save(context.Background(), s))
	}
	ranker := ranking.New(dtw.NewEngine(dtw.WithMode(dtw.ModeExact)), ranking.WithWorkers(2))
	f.matcher = NewMatcherUseCase(f.store, f.cache, ranker, f.publisher, f.broadcaster, nil,
		MatcherConfig{Period: 12, NeighborCount: 2, Mode: "exact", Workers: 2, Timeout: time.Second}, nil)
	return f
}

func sineFixture(t *testing.T) *fixture {
	return newFixture(t,
		monthly("query", sine(0)),
		monthly("exact", sine(0)),
		monthly("shifted", sine(1)),
		monthly("noise", noise()),
		monthly("short", sine(0)[:10]),
	)
}

func TestMatchStoredQuery(t *testing.T) {
	f := sineFixture(t)

	report, err := f.matcher.Match(context.Background(), MatchParams{QueryName: "query"})
	require.NoError(t, err)

	assert.Equal(t, []string{"exact", "shifted"}, report.Names())
	assert.Equal(t, 0.0, report.Results[0].Distance)
	assert.Equal(t, 3, report.Candidates, "query itself and the failing series are not candidates")
	assert.Equal(t, 12, report.Period)
	assert.Equal(t, "exact", report.Mode)

	require.Contains(t, report.Failures, "short")
	assert.Contains(t, report.Failures["short"], models.ErrInsufficientData.Error())

	require.Len(t, report.Matches, 2)
	assert.Equal(t, "query", report.Matches[0].Query.Name)
	assert.Equal(t, "exact", report.Matches[0].Match.Name)
	assert.Len(t, report.Matches[1].Match.Values, 24)

	assert.Len(t, f.publisher.reports, 1)
	assert.Len(t, f.broadcaster.reports, 1)
}

func TestMatchAdHocQuery(t *testing.T) {
	f := newFixture(t, monthly("exact", sine(0)), monthly("shifted", sine(1)), monthly("noise", noise()))

	report, err := f.matcher.Match(context.Background(), MatchParams{Query: monthly("upload", sine(0)), N: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"exact", "shifted", "noise"}, report.Names())
	assert.Nil(t, report.Failures)
}

func TestMatchUsesFeatureCache(t *testing.T) {
	f := sineFixture(t)
	ctx := context.Background()

	_, err := f.matcher.Match(ctx, MatchParams{QueryName: "query"})
	require.NoError(t, err)
	sets := f.cache.sets
	assert.Equal(t, 4, sets, "query and three good candidates")

	_, err = f.matcher.Match(ctx, MatchParams{QueryName: "query"})
	require.NoError(t, err)
	assert.Equal(t, sets, f.cache.sets)
	assert.Equal(t, 4, f.cache.hits)
}

func TestMatchErrors(t *testing.T) {
	ctx := context.Background()
	f := sineFixture(t)

	_, err := f.matcher.Match(ctx, MatchParams{QueryName: "missing"})
	assert.ErrorIs(t, err, models.ErrSeriesNotFound)

	_, err = f.matcher.Match(ctx, MatchParams{QueryName: "short"})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = f.matcher.Match(ctx, MatchParams{QueryName: "query", N: -1})
	assert.ErrorIs(t, err, models.ErrInvalidNeighborCount)

	_, err = f.matcher.Match(ctx, MatchParams{QueryName: "query", Period: 1})
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)

	_, err = f.matcher.Match(ctx, MatchParams{})
	assert.ErrorIs(t, err, models.ErrInvalidSeriesName)

	alone := newFixture(t, monthly("query", sine(0)))
	_, err = alone.matcher.Match(ctx, MatchParams{QueryName: "query"})
	assert.ErrorIs(t, err, models.ErrEmptyCandidateSet)

	allBad := newFixture(t, monthly("query", sine(0)), monthly("a", sine(0)[:5]), monthly("b", sine(0)[:7]))
	_, err = allBad.matcher.Match(ctx, MatchParams{QueryName: "query"})
	assert.ErrorIs(t, err, models.ErrEmptyCandidateSet)
	assert.Empty(t, allBad.publisher.reports)
}

func TestMatchPublishFailureIsNotFatal(t *testing.T) {
	f := sineFixture(t)
	f.publisher.err = errors.New("broker down")

	report, err := f.matcher.Match(context.Background(), MatchParams{QueryName: "query"})
	require.NoError(t, err)
	assert.Equal(t, []string{"exact", "shifted"}, report.Names())
	assert.Len(t, f.broadcaster.reports, 1)
}

func TestMatchTimeoutReturnsNothing(t *testing.T) {
	f := sineFixture(t)
	f.matcher.ranker = blockingRanker{}
	f.matcher.cfg.Timeout = 20 * time.Millisecond

	report, err := f.matcher.Match(context.Background(), MatchParams{QueryName: "query"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, report)
	assert.Empty(t, f.publisher.reports)
}

func TestKafkaMatchHandler(t *testing.T) {
	f := sineFixture(t)
	h := NewKafkaMatchHandler("match.requests", f.matcher, nil)
	ctx := context.Background()

	assert.Equal(t, "match.requests", h.Topic())
	assert.Error(t, h.Handle(ctx, []byte("{")))
	assert.Error(t, h.Handle(ctx, []byte(`{"n":2}`)))
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"query_name":"missing"}`)), models.ErrSeriesNotFound)

	for _, msg := range []string{
		`{`,
		`{"n":2}`,
		`{"query_name":"query","n":0}`,
		`{"query_name":"missing"}`,
		`{"query_name":"short"}`,
	} {
		assert.True(t, pkgkafka.IsPermanent(h.Handle(ctx, []byte(msg))), msg)
	}
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"query_name":"query","n":0}`)), models.ErrInvalidNeighborCount)

	require.NoError(t, h.Handle(ctx, []byte(`{"query_name":"query","n":1,"period":12}`)))
	require.Len(t, f.publisher.reports, 1)
	assert.Equal(t, []string{"exact"}, f.publisher.reports[0].Names())
}

func table(dates []string, values []string) models.Table {
	return models.Table{Columns: []models.Column{
		{Name: "value", Values: values},
		{Name: "date", Values: dates},
	}}
}

func TestSeriesIngest(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySeriesStore()
	uc := NewSeriesIngestUseCase(store, nil, nil, "memory", 0.9, nil)

	s, err := uc.Ingest(ctx, IngestParams{
		Name:   "sales",
		Table:  table([]string{"2024-03-01", "2024-01-01", "2024-02-01"}, []string{"3", "1", "2"}),
		Target: "value",
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, s.Values)

	names, err := uc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, names)

	got, err := uc.Get(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, s.Values, got.Values)
	require.NoError(t, uc.Health(ctx))

	require.NoError(t, uc.Delete(ctx, "sales"))
	assert.ErrorIs(t, uc.Delete(ctx, "sales"), models.ErrSeriesNotFound)
}

func TestSeriesIngestErrors(t *testing.T) {
	ctx := context.Background()
	uc := NewSeriesIngestUseCase(repository.NewMemorySeriesStore(), nil, nil, "memory", 0.9, nil)
	tbl := table([]string{"2024-01-01", "2024-02-01"}, []string{"1", "2"})

	_, err := uc.Ingest(ctx, IngestParams{Table: tbl, Target: "value"})
	assert.ErrorIs(t, err, models.ErrInvalidSeriesName)

	_, err = uc.Ingest(ctx, IngestParams{Name: "x", Table: tbl, Target: "price"})
	assert.ErrorIs(t, err, models.ErrUnknownColumn)

	// Half the dates parse: below 0.9, accepted with an explicit 0.5 threshold.
	half := table([]string{"2024-01-01", "n/a"}, []string{"1", "2"})
	_, err = uc.Ingest(ctx, IngestParams{Name: "x", Table: half, Target: "value"})
	assert.ErrorIs(t, err, models.ErrNoDateColumnFound)
	s, err := uc.Ingest(ctx, IngestParams{Name: "x", Table: half, Target: "value", Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestSeriesDeleteInvalidatesFeatures(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	fc := repository.NewFeatureCache(mc, time.Hour, nil)
	store := repository.NewMemorySeriesStore()
	uc := NewSeriesIngestUseCase(store, fc, nil, "memory", 0.9, nil)

	s := monthly("a", []float64{1, 2})
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, fc.Set(ctx, s, 12, models.FeatureSequence{{1, 1, 1}, {2, 2, 2}}))

	require.NoError(t, uc.Delete(ctx, "a"))
	_, ok := fc.Get(ctx, s, 12)
	assert.False(t, ok)
}

func TestMatchJob(t *testing.T) {
	f := sineFixture(t)
	job := NewMatchJob(f.matcher)
	ctx := context.Background()

	assert.Equal(t, MatchJobType, job.Type())
	assert.ErrorIs(t, job.Handle(ctx, []byte(`{"n":1}`)), errMissingQueryName)
	assert.True(t, queue.IsPermanent(job.Handle(ctx, []byte(`{"n":1}`))))
	assert.True(t, queue.IsPermanent(job.Handle(ctx, []byte(`{"query_name":"missing"}`))))

	require.NoError(t, job.Handle(ctx, []byte(`{"query_name":"query","n":2}`)))
	require.Len(t, f.broadcaster.reports, 1)
	assert.Equal(t, []string{"exact", "shifted"}, f.broadcaster.reports[0].Names())
}

func TestDecodeMatchRequest(t *testing.T) {
	p, err := decodeMatchRequest([]byte(`{"query_name":"q"}`))
	require.NoError(t, err)
	assert.Equal(t, MatchParams{QueryName: "q"}, p)

	p, err = decodeMatchRequest([]byte(`{"query_name":"q","n":4,"period":6}`))
	require.NoError(t, err)
	assert.Equal(t, MatchParams{QueryName: "q", N: 4, Period: 6}, p)

	_, err = decodeMatchRequest([]byte(`{"query_name":"q","n":0}`))
	assert.ErrorIs(t, err, models.ErrInvalidNeighborCount)
	_, err = decodeMatchRequest([]byte(`[]`))
	assert.ErrorIs(t, err, errMalformedRequest)
}

func TestPermanentMatchErrors(t *testing.T) {
	assert.False(t, permanent(nil))
	assert.False(t, permanent(context.DeadlineExceeded))
	assert.False(t, permanent(models.ErrEmptyCandidateSet))
	assert.True(t, permanent(fmt.Errorf("get: %w", models.ErrSeriesNotFound)))
}
