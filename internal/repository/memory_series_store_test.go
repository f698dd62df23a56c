package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShapeFinder/internal/domain/models"
)

func monthly(t *testing.T, name string, values ...float64) *models.TimeSeries {
	t.Helper()
	start := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, len(values))
	for i := range values {
		ts[i] = start.AddDate(0, i, 0)
	}
	s, err := models.NewTimeSeries(name, ts, values)
	require.NoError(t, err)
	return s
}

func TestMemorySeriesStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySeriesStore()

	in := monthly(t, "b", 1, 2, 3)
	require.NoError(t, store.Save(ctx, in))
	require.NoError(t, store.Save(ctx, monthly(t, "a", 4, 5)))

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// Stored data is isolated from the caller's copy.
	got.Values[0] = 100
	again, _ := store.Get(ctx, "b")
	assert.Equal(t, 1.0, again.Values[0])

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
}

func TestMemorySeriesStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySeriesStore()
	require.NoError(t, store.Save(ctx, monthly(t, "a", 1, 2, 3)))
	require.NoError(t, store.Save(ctx, monthly(t, "a", 7)))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, got.Values)
}

func TestMemorySeriesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySeriesStore()

	assert.ErrorIs(t, store.Save(ctx, &models.TimeSeries{}), models.ErrInvalidSeriesName)
	assert.ErrorIs(t, store.Save(ctx, nil), models.ErrInvalidSeriesName)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSeriesNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), models.ErrSeriesNotFound)

	require.NoError(t, store.Save(ctx, monthly(t, "a", 1)))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, models.ErrSeriesNotFound)
}
