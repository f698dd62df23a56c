package repository

import (
	"context"
	"errors"
	"time"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/domain/repository"
	"ShapeFinder/pkg/cache"
	applogger "ShapeFinder/pkg/logger"
)

const featureKeyPrefix = "features"

// FeatureCache stores feature sequences keyed by series name, period and a
// hash of the series' points, so an overwritten series never hits a stale entry.
type FeatureCache struct {
	c       cache.Service
	ttl     time.Duration
	metrics repository.Metrics
	l       *applogger.Logger
}

var _ repository.FeatureCache = (*FeatureCache)(nil)

func NewFeatureCache(c cache.Service, ttl time.Duration, m repository.Metrics) *FeatureCache {
	return &FeatureCache{c: c, ttl: ttl, metrics: m}
}

// SetLogger injects a structured logger.
func (f *FeatureCache) SetLogger(l *applogger.Logger) { f.l = l }

// FeatureKey builds the cache key for a series at a period.
func FeatureKey(s *models.TimeSeries, period int) string {
	return cache.Key(featureKeyPrefix, s.Name, period, cache.Digest(s.Fingerprint()))
}

func (f *FeatureCache) Get(ctx context.Context, s *models.TimeSeries, period int) (models.FeatureSequence, bool) {
	var seq models.FeatureSequence
	err := f.c.Get(ctx, FeatureKey(s, period), &seq)
	hit := err == nil && len(seq) == s.Len()
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) && f.l != nil {
		f.l.Warn("feature cache get failed", applogger.String("series", s.Name), applogger.Error(err))
	}
	if f.metrics != nil {
		f.metrics.RecordCacheLookup(hit)
	}
	if !hit {
		return nil, false
	}
	return seq, true
}

func (f *FeatureCache) Set(ctx context.Context, s *models.TimeSeries, period int, features models.FeatureSequence) error {
	return f.c.Set(ctx, FeatureKey(s, period), features, f.ttl)
}

// Invalidate drops every cached period of the named series.
func (f *FeatureCache) Invalidate(ctx context.Context, name string) error {
	return f.c.DeleteByPattern(ctx, cache.PrefixPattern(featureKeyPrefix, name))
}
