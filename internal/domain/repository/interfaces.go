package repository

import (
	"context"

	"ShapeFinder/internal/domain/models"
)

// SeriesStore persists named time series.
type SeriesStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	// Save replaces any series stored under the same name.
	Save(ctx context.Context, s *models.TimeSeries) error
	Get(ctx context.Context, name string) (*models.TimeSeries, error)
	List(ctx context.Context) ([]string, error)
	LoadAll(ctx context.Context) ([]*models.TimeSeries, error)
	Delete(ctx context.Context, name string) error
	Health(ctx context.Context) error // ping
	Close() error
}

// FeatureCache memoizes feature sequences per series content and period.
type FeatureCache interface {
	Get(ctx context.Context, s *models.TimeSeries, period int) (models.FeatureSequence, bool)
	Set(ctx context.Context, s *models.TimeSeries, period int, features models.FeatureSequence) error
}

// ReportPublisher ships finished match reports to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, r *models.MatchReport) error
	Close() error
}

// ReportBroadcaster pushes match reports to live subscribers.
type ReportBroadcaster interface {
	Broadcast(r *models.MatchReport)
}

type Metrics interface {
	RecordMatch(mode string, candidates int, seconds float64)
	RecordCandidateFailure(reason string)
	RecordCacheLookup(hit bool)
	RecordSeriesStored(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
