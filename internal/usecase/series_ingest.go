package usecase

import (
	"context"
	"fmt"
	"time"

	"ShapeFinder/internal/domain/models"
	domrepo "ShapeFinder/internal/domain/repository"
	"ShapeFinder/internal/services/tabular"
	"ShapeFinder/pkg/logger"
)

// featureInvalidator is implemented by feature caches that can drop every
// entry of a series.
type featureInvalidator interface {
	Invalidate(ctx context.Context, name string) error
}

// SeriesIngestUseCase turns uploaded tables into stored series.
type SeriesIngestUseCase struct {
	store         domrepo.SeriesStore
	cache         domrepo.FeatureCache
	metrics       domrepo.Metrics
	backend       string
	dateThreshold float64
	log           *logger.Logger
}

func NewSeriesIngestUseCase(store domrepo.SeriesStore, cache domrepo.FeatureCache, metrics domrepo.Metrics, backend string, dateThreshold float64, log *logger.Logger) *SeriesIngestUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &SeriesIngestUseCase{
		store:         store,
		cache:         cache,
		metrics:       metrics,
		backend:       backend,
		dateThreshold: dateThreshold,
		log:           log,
	}
}

type IngestParams struct {
	Name   string
	Table  models.Table
	Target string
	// Threshold overrides the configured date parse threshold when > 0.
	Threshold float64
}

// Parse builds a series from the table without storing it.
func (uc *SeriesIngestUseCase) Parse(p IngestParams) (*models.TimeSeries, error) {
	if p.Name == "" {
		return nil, models.ErrInvalidSeriesName
	}
	threshold := uc.dateThreshold
	if p.Threshold > 0 {
		threshold = p.Threshold
	}
	s, err := tabular.BuildSeries(p.Name, p.Table, p.Target, threshold)
	if err != nil {
		uc.recordError("ingest_parse")
		return nil, fmt.Errorf("series %q: %w", p.Name, err)
	}
	return s, nil
}

// Ingest builds a series from the table and stores it, replacing any series
// with the same name.
func (uc *SeriesIngestUseCase) Ingest(ctx context.Context, p IngestParams) (*models.TimeSeries, error) {
	s, err := uc.Parse(p)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := uc.store.Save(ctx, s); err != nil {
		uc.recordError("ingest_store")
		return nil, fmt.Errorf("save series %q: %w", p.Name, err)
	}
	if uc.metrics != nil {
		uc.metrics.RecordLatency("series_save_seconds", time.Since(start).Seconds())
		uc.metrics.RecordSeriesStored(uc.backend)
	}
	uc.log.Info("series stored",
		logger.String("name", s.Name),
		logger.Int("points", s.Len()),
		logger.String("backend", uc.backend))
	return s, nil
}

func (uc *SeriesIngestUseCase) List(ctx context.Context) ([]string, error) {
	return uc.store.List(ctx)
}

func (uc *SeriesIngestUseCase) Get(ctx context.Context, name string) (*models.TimeSeries, error) {
	return uc.store.Get(ctx, name)
}

// Delete removes the series and any cached features of it.
func (uc *SeriesIngestUseCase) Delete(ctx context.Context, name string) error {
	if err := uc.store.Delete(ctx, name); err != nil {
		return err
	}
	if inv, ok := uc.cache.(featureInvalidator); ok {
		if err := inv.Invalidate(ctx, name); err != nil {
			uc.log.Warn("feature cache invalidate failed", logger.String("name", name), logger.Error(err))
		}
	}
	return nil
}

// Health reports whether the store is reachable.
func (uc *SeriesIngestUseCase) Health(ctx context.Context) error {
	return uc.store.Health(ctx)
}

func (uc *SeriesIngestUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
