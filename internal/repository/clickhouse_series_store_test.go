package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcclickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/pkg/clickhouse"
)

func setupClickHouse(t *testing.T) *ClickHouseSeriesStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := tcclickhouse.Run(ctx, "clickhouse/clickhouse-server:23.3.8.21-alpine",
		tcclickhouse.WithDatabase("shapefinder"),
		tcclickhouse.WithUsername("test"),
		tcclickhouse.WithPassword("test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	// A small batch size so every multi-point save spans several blocks.
	client, err := clickhouse.NewClient(ctx,
		clickhouse.WithHost(host),
		clickhouse.WithPort(port.Int()),
		clickhouse.WithDatabase("shapefinder"),
		clickhouse.WithCredentials("test", "test"),
		clickhouse.WithBatchSize(2),
	)
	require.NoError(t, err)

	store := NewClickHouseSeriesStore(client)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Init(ctx))
	return store
}

func TestClickHouseSeriesStore(t *testing.T) {
	store := setupClickHouse(t)
	ctx := context.Background()

	a := monthly(t, "a", 1, 2, 3, 4, 5)
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, monthly(t, "b", 5, 6)))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, a.Values, got.Values)
	require.Len(t, got.Timestamps, len(a.Timestamps))
	for i := range a.Timestamps {
		assert.True(t, a.Timestamps[i].Equal(got.Timestamps[i]))
	}

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[1].Name)
	assert.Equal(t, []float64{5, 6}, all[1].Values)
	require.NoError(t, store.Health(ctx))
}

func TestClickHouseSeriesStoreSaveReplaces(t *testing.T) {
	store := setupClickHouse(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, monthly(t, "a", 1, 2, 3, 4, 5)))
	require.NoError(t, store.Save(ctx, monthly(t, "a", 9)))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, got.Values)
	assert.Len(t, got.Timestamps, 1)
}

func TestClickHouseSeriesStoreKeepsDuplicateTimestamps(t *testing.T) {
	store := setupClickHouse(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s, err := models.NewTimeSeries("dup",
		[]time.Time{at, at, at, at.AddDate(0, 1, 0)},
		[]float64{3, 1, 2, 0})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2, 0}, got.Values)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []float64{3, 1, 2, 0}, all[0].Values)
}

func TestClickHouseSeriesStoreErrors(t *testing.T) {
	store := setupClickHouse(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Delete(ctx, "missing"), models.ErrSeriesNotFound)
	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSeriesNotFound)
	assert.ErrorIs(t, store.Save(ctx, &models.TimeSeries{}), models.ErrInvalidSeriesName)

	require.NoError(t, store.Save(ctx, monthly(t, "a", 1, 2)))
	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), models.ErrSeriesNotFound)
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
