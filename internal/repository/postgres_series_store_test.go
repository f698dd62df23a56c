package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/pkg/postgres"
)

func TestPartitionYears(t *testing.T) {
	ts := []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 12, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		// 2023-01-01 01:00 in UTC+3 is still 2022 in UTC.
		time.Date(2023, 1, 1, 1, 0, 0, 0, time.FixedZone("x", 3*3600)),
	}
	assert.Equal(t, []int{2022, 2024}, PartitionYears(ts))
	assert.Empty(t, PartitionYears(nil))
	assert.Equal(t, "series_points_y2024", PartitionName(2024))
}

func setupPostgres(t *testing.T) *PostgresSeriesStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("shapefinder"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)

	store := NewPostgresSeriesStore(pool)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Init(ctx))
	return store
}

func TestPostgresSeriesStore(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	// Spans two calendar years, so two partitions.
	a := monthly(t, "a", 1, 2, 3, 4)
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, monthly(t, "b", 5, 6)))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, a.Values, got.Values)
	for i := range a.Timestamps {
		assert.True(t, a.Timestamps[i].Equal(got.Timestamps[i]))
	}

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, store.Save(ctx, monthly(t, "a", 9)))
	got, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, got.Values)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []float64{5, 6}, all[1].Values)

	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), models.ErrSeriesNotFound)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, models.ErrSeriesNotFound)
	require.NoError(t, store.Health(ctx))
}

func TestPostgresSeriesStoreKeepsDuplicateTimestamps(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s, err := models.NewTimeSeries("dup", []time.Time{at, at, at.AddDate(0, 1, 0)}, []float64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got.Values)
}
