package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/pkg/cache"
)

type lookupCounter struct {
	hits, misses int
}

func (c *lookupCounter) RecordMatch(string, int, float64) {}
func (c *lookupCounter) RecordCandidateFailure(string)    {}
func (c *lookupCounter) RecordSeriesStored(string)        {}
func (c *lookupCounter) RecordError(string)               {}
func (c *lookupCounter) RecordLatency(string, float64)    {}
func (c *lookupCounter) RecordCacheLookup(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func newFeatureCache(t *testing.T) (*FeatureCache, *lookupCounter) {
	t.Helper()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	m := &lookupCounter{}
	return NewFeatureCache(mc, time.Hour, m), m
}

func TestFeatureCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fc, m := newFeatureCache(t)
	s := monthly(t, "a", 1, 2)
	seq := models.FeatureSequence{{1, 2, 3}, {-1, 0, 0.5}}

	_, ok := fc.Get(ctx, s, 12)
	assert.False(t, ok)

	require.NoError(t, fc.Set(ctx, s, 12, seq))
	got, ok := fc.Get(ctx, s, 12)
	require.True(t, ok)
	assert.Equal(t, seq, got)

	_, ok = fc.Get(ctx, s, 6)
	assert.False(t, ok, "period is part of the key")

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 2, m.misses)
}

func TestFeatureCacheKeyFollowsContent(t *testing.T) {
	ctx := context.Background()
	fc, _ := newFeatureCache(t)
	s := monthly(t, "a", 1, 2)
	require.NoError(t, fc.Set(ctx, s, 12, models.FeatureSequence{{1, 1, 1}, {2, 2, 2}}))

	changed := monthly(t, "a", 1, 3)
	assert.NotEqual(t, FeatureKey(s, 12), FeatureKey(changed, 12))
	_, ok := fc.Get(ctx, changed, 12)
	assert.False(t, ok)
}

func TestFeatureCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	fc, _ := newFeatureCache(t)
	a := monthly(t, "a", 1, 2)
	b := monthly(t, "b", 1, 2)
	seq := models.FeatureSequence{{1, 1, 1}, {2, 2, 2}}
	require.NoError(t, fc.Set(ctx, a, 12, seq))
	require.NoError(t, fc.Set(ctx, a, 4, seq))
	require.NoError(t, fc.Set(ctx, b, 12, seq))

	require.NoError(t, fc.Invalidate(ctx, "a"))

	_, ok := fc.Get(ctx, a, 12)
	assert.False(t, ok)
	_, ok = fc.Get(ctx, a, 4)
	assert.False(t, ok)
	_, ok = fc.Get(ctx, b, 12)
	assert.True(t, ok)
}
