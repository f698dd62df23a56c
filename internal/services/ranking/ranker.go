// Package ranking orders candidate series by DTW distance to a query.
package ranking

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/domain/service"
)

// Ranker computes one distance per candidate on a bounded worker pool and
// returns the closest N. A ranking pass either completes or returns an error;
// partial results are never returned.
type Ranker struct {
	engine  service.DistanceEngine
	workers int
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithWorkers bounds the number of concurrent distance computations.
func WithWorkers(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates a Ranker backed by engine. Workers default to GOMAXPROCS.
func New(engine service.DistanceEngine, opts ...Option) *Ranker {
	r := &Ranker{engine: engine, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns min(n, len(candidates)) results sorted by ascending distance,
// ties broken by name.
func (r *Ranker) Rank(ctx context.Context, query models.FeatureSequence, candidates []models.Candidate, n int) ([]models.MatchResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidNeighborCount, n)
	}
	if len(candidates) == 0 {
		return nil, models.ErrEmptyCandidateSet
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("query: %w", models.ErrEmptySequence)
	}

	results := make([]models.MatchResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range candidates {
		c := &candidates[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := r.engine.Distance(query, c.Features)
			if err != nil {
				return fmt.Errorf("candidate %q: %w", c.Name, err)
			}
			results[i] = models.MatchResult{Name: c.Name, Distance: d}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	Sort(results)
	if n < len(results) {
		results = results[:n]
	}
	return results, nil
}

// Sort orders results by distance, then name.
func Sort(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Name < results[j].Name
	})
}
