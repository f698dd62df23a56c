package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"ShapeFinder/internal/domain/models"
	domrepo "ShapeFinder/internal/domain/repository"
	"ShapeFinder/internal/domain/service"
	"ShapeFinder/internal/services/features"
	"ShapeFinder/pkg/logger"
)

// MatcherConfig holds the run parameters of a matching pass.
type MatcherConfig struct {
	Period        int
	NeighborCount int
	Mode          string
	Workers       int
	Timeout       time.Duration
}

// MatcherUseCase runs the query through the feature pipeline, prepares every
// stored candidate and ranks them.
type MatcherUseCase struct {
	store       domrepo.SeriesStore
	cache       domrepo.FeatureCache
	ranker      service.Ranker
	publisher   domrepo.ReportPublisher
	broadcaster domrepo.ReportBroadcaster
	metrics     domrepo.Metrics
	cfg         MatcherConfig
	log         *logger.Logger
	now         func() time.Time
}

func NewMatcherUseCase(
	store domrepo.SeriesStore,
	cache domrepo.FeatureCache,
	ranker service.Ranker,
	publisher domrepo.ReportPublisher,
	broadcaster domrepo.ReportBroadcaster,
	metrics domrepo.Metrics,
	cfg MatcherConfig,
	log *logger.Logger,
) *MatcherUseCase {
	if cfg.Period == 0 {
		cfg.Period = 12
	}
	if cfg.NeighborCount == 0 {
		cfg.NeighborCount = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MatcherUseCase{
		store:       store,
		cache:       cache,
		ranker:      ranker,
		publisher:   publisher,
		broadcaster: broadcaster,
		metrics:     metrics,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// MatchParams selects the query: an ad-hoc Query series, or QueryName of a
// stored series. Zero N and Period fall back to the configured values, so
// transports map an omitted count to zero and reject an explicit zero through
// NeighborCount.
type MatchParams struct {
	QueryName string
	Query     *models.TimeSeries
	N         int
	Period    int
}

// Match ranks the stored series against the query. A query that cannot be
// prepared fails the call; a candidate that cannot be prepared is left out
// and reported in Failures.
func (uc *MatcherUseCase) Match(ctx context.Context, p MatchParams) (*models.MatchReport, error) {
	start := uc.now()
	if p.N == 0 {
		p.N = uc.cfg.NeighborCount
	}
	if p.Period == 0 {
		p.Period = uc.cfg.Period
	}
	if p.N < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidNeighborCount, p.N)
	}
	if p.Period < 2 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidPeriod, p.Period)
	}

	query := p.Query
	stored := query == nil
	if stored {
		if p.QueryName == "" {
			return nil, models.ErrInvalidSeriesName
		}
		var err error
		if query, err = uc.store.Get(ctx, p.QueryName); err != nil {
			return nil, fmt.Errorf("query %q: %w", p.QueryName, err)
		}
	}
	qf, err := uc.prepare(ctx, query, p.Period)
	if err != nil {
		uc.recordError("match_query")
		return nil, fmt.Errorf("query %q: %w", query.Name, err)
	}

	all, err := uc.store.LoadAll(ctx)
	if err != nil {
		uc.recordError("match_load")
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	series := all[:0]
	for _, s := range all {
		if stored && s.Name == query.Name {
			continue
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return nil, models.ErrEmptyCandidateSet
	}

	candidates, failures, err := uc.prepareCandidates(ctx, series, p.Period)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: all %d candidates failed", models.ErrEmptyCandidateSet, len(series))
	}

	rctx := ctx
	if uc.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, uc.cfg.Timeout)
		defer cancel()
	}
	results, err := uc.ranker.Rank(rctx, qf, candidates, p.N)
	if err != nil {
		uc.recordError("match_rank")
		return nil, fmt.Errorf("rank %q: %w", query.Name, err)
	}

	report := &models.MatchReport{
		Query:      query.Name,
		Period:     p.Period,
		Mode:       uc.cfg.Mode,
		Candidates: len(candidates),
		Results:    results,
		Matches:    pairs(query, candidates, results),
		Failures:   failures,
		Timestamp:  start.UTC(),
	}
	if uc.metrics != nil {
		uc.metrics.RecordMatch(uc.cfg.Mode, len(candidates), uc.now().Sub(start).Seconds())
	}
	uc.log.Info("match completed",
		logger.String("query", query.Name),
		logger.Int("candidates", len(candidates)),
		logger.Int("failures", len(failures)),
		logger.Strings("results", report.Names()),
		logger.Duration("took", uc.now().Sub(start)))

	uc.deliver(ctx, report)
	return report, nil
}

// prepare returns the feature sequence of s, from the cache when possible.
func (uc *MatcherUseCase) prepare(ctx context.Context, s *models.TimeSeries, period int) (models.FeatureSequence, error) {
	if uc.cache != nil {
		if seq, ok := uc.cache.Get(ctx, s, period); ok {
			return seq, nil
		}
	}
	ex, err := features.Extract(s, period)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, s, period, ex.Features); err != nil {
			uc.log.Warn("feature cache set failed", logger.String("series", s.Name), logger.Error(err))
		}
	}
	return ex.Features, nil
}

// prepareCandidates builds features for every series concurrently. Per-series
// failures are collected by name; only cancellation aborts the batch.
func (uc *MatcherUseCase) prepareCandidates(ctx context.Context, series []*models.TimeSeries, period int) ([]models.Candidate, map[string]string, error) {
	prepared := make([]models.Candidate, len(series))
	errs := make([]error, len(series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Workers)
	for i, s := range series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seq, err := uc.prepare(gctx, s, period)
			if err != nil {
				errs[i] = err
				return nil
			}
			prepared[i] = models.Candidate{
				Name:       s.Name,
				Features:   seq,
				Timestamps: s.Timestamps,
				Values:     s.Values,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	candidates := make([]models.Candidate, 0, len(series))
	failures := map[string]string{}
	for i, s := range series {
		if errs[i] != nil {
			failures[s.Name] = errs[i].Error()
			if uc.metrics != nil {
				uc.metrics.RecordCandidateFailure(failureReason(errs[i]))
			}
			uc.log.Warn("candidate excluded", logger.String("series", s.Name), logger.Error(errs[i]))
			continue
		}
		candidates = append(candidates, prepared[i])
	}
	if len(failures) == 0 {
		failures = nil
	}
	return candidates, failures, nil
}

// deliver hands the report to the publisher and the broadcaster. Neither can
// fail the match.
func (uc *MatcherUseCase) deliver(ctx context.Context, r *models.MatchReport) {
	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, r); err != nil {
			uc.recordError("report_publish")
			uc.log.Error("report publish failed", logger.String("query", r.Query), logger.Error(err))
		}
	}
	if uc.broadcaster != nil {
		uc.broadcaster.Broadcast(r)
	}
}

func (uc *MatcherUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}

func pairs(query *models.TimeSeries, candidates []models.Candidate, results []models.MatchResult) []models.MatchedPair {
	byName := make(map[string]*models.Candidate, len(candidates))
	for i := range candidates {
		byName[candidates[i].Name] = &candidates[i]
	}
	out := make([]models.MatchedPair, 0, len(results))
	for _, r := range results {
		c, ok := byName[r.Name]
		if !ok {
			continue
		}
		out = append(out, models.MatchedPair{
			Query:    query.View(),
			Match:    models.SeriesView{Name: c.Name, Timestamps: c.Timestamps, Values: c.Values},
			Distance: r.Distance,
		})
	}
	return out
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, models.ErrLengthMismatch):
		return "length_mismatch"
	default:
		return "other"
	}
}
