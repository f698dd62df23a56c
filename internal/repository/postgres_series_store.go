package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/domain/repository"
	"ShapeFinder/pkg/postgres"
)

const pgSeriesTable = "series_points"

// PostgresSeriesStore keeps points in a table range-partitioned by timestamp,
// one partition per calendar year. Partitions are created on demand when a
// series reaches into a new year.
type PostgresSeriesStore struct {
	pool *postgres.Pool

	mu    sync.Mutex
	years map[int]bool // partitions known to exist
}

var _ repository.SeriesStore = (*PostgresSeriesStore)(nil)

func NewPostgresSeriesStore(pool *postgres.Pool) *PostgresSeriesStore {
	return &PostgresSeriesStore{pool: pool, years: make(map[int]bool)}
}

func (s *PostgresSeriesStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + pgSeriesTable + ` (
			name  TEXT             NOT NULL,
			seq   INTEGER          NOT NULL,
			ts    TIMESTAMPTZ      NOT NULL,
			value DOUBLE PRECISION NOT NULL
		) PARTITION BY RANGE (ts)`,
		`CREATE INDEX IF NOT EXISTS series_points_name_ts_idx ON ` + pgSeriesTable + ` (name, ts, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// PartitionName returns the partition table holding points of year.
func PartitionName(year int) string {
	return fmt.Sprintf("%s_y%04d", pgSeriesTable, year)
}

// PartitionYears returns the distinct UTC years covered by timestamps, ascending.
func PartitionYears(timestamps []time.Time) []int {
	seen := make(map[int]bool)
	var years []int
	for _, t := range timestamps {
		y := t.UTC().Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func (s *PostgresSeriesStore) ensurePartitions(ctx context.Context, tx pgx.Tx, years []int) error {
	for _, y := range years {
		s.mu.Lock()
		known := s.years[y]
		s.mu.Unlock()
		if known {
			continue
		}
		from := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		stmt := fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
			PartitionName(y), pgSeriesTable, from.Format(time.RFC3339), to.Format(time.RFC3339))
		// A savepoint keeps a lost creation race from aborting the outer transaction.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := sp.Exec(ctx, stmt); err != nil {
			_ = sp.Rollback(ctx)
			if !postgres.IsDuplicateTable(err) {
				return fmt.Errorf("create partition %d: %w", y, err)
			}
		} else if err := sp.Commit(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.years[y] = true
		s.mu.Unlock()
	}
	return nil
}

// Save replaces the series in one transaction: partitions, delete, COPY.
func (s *PostgresSeriesStore) Save(ctx context.Context, ts *models.TimeSeries) error {
	if ts == nil || ts.Name == "" {
		return models.ErrInvalidSeriesName
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save series %q: %w", ts.Name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.ensurePartitions(ctx, tx, PartitionYears(ts.Timestamps)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM "+pgSeriesTable+" WHERE name = $1", ts.Name); err != nil {
		return fmt.Errorf("save series %q: %w", ts.Name, err)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{pgSeriesTable},
		[]string{"name", "seq", "ts", "value"},
		pgx.CopyFromSlice(ts.Len(), func(i int) ([]any, error) {
			return []any{ts.Name, int32(i), ts.Timestamps[i].UTC(), ts.Values[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("save series %q: %w", ts.Name, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresSeriesStore) Get(ctx context.Context, name string) (*models.TimeSeries, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT ts, value FROM "+pgSeriesTable+" WHERE name = $1 ORDER BY ts, seq", name)
	if err != nil {
		return nil, fmt.Errorf("get series %q: %w", name, err)
	}
	defer rows.Close()

	out := &models.TimeSeries{Name: name}
	for rows.Next() {
		var t time.Time
		var v float64
		if err := rows.Scan(&t, &v); err != nil {
			return nil, err
		}
		out.Timestamps = append(out.Timestamps, t.UTC())
		out.Values = append(out.Values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return nil, models.ErrSeriesNotFound
	}
	return out, nil
}

func (s *PostgresSeriesStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT name FROM "+pgSeriesTable+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return names, nil
}

func (s *PostgresSeriesStore) LoadAll(ctx context.Context) ([]*models.TimeSeries, error) {
	rows, err := s.pool.Query(ctx, "SELECT name, ts, value FROM "+pgSeriesTable+" ORDER BY name, ts, seq")
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	var out []*models.TimeSeries
	var cur *models.TimeSeries
	for rows.Next() {
		var name string
		var t time.Time
		var v float64
		if err := rows.Scan(&name, &t, &v); err != nil {
			return nil, err
		}
		if cur == nil || cur.Name != name {
			cur = &models.TimeSeries{Name: name}
			out = append(out, cur)
		}
		cur.Timestamps = append(cur.Timestamps, t.UTC())
		cur.Values = append(cur.Values, v)
	}
	return out, rows.Err()
}

func (s *PostgresSeriesStore) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+pgSeriesTable+" WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete series %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSeriesNotFound
	}
	return nil
}

func (s *PostgresSeriesStore) Health(ctx context.Context) error {
	return s.pool.Health(ctx)
}

func (s *PostgresSeriesStore) Close() error {
	s.pool.Close()
	return nil
}
