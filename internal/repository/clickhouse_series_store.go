package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/domain/repository"
	"ShapeFinder/pkg/clickhouse"
	applogger "ShapeFinder/pkg/logger"
)

const chSeriesTable = "series_points"

// ClickHouseSeriesStore keeps one row per point in a MergeTree partitioned by
// month. seq is the point's position so duplicate timestamps round-trip in order.
type ClickHouseSeriesStore struct {
	client *clickhouse.Client
	db     *sql.DB
	l      *applogger.Logger
}

var _ repository.SeriesStore = (*ClickHouseSeriesStore)(nil)

// NewClickHouseSeriesStore creates ClickHouse storage.
func NewClickHouseSeriesStore(client *clickhouse.Client) *ClickHouseSeriesStore {
	return &ClickHouseSeriesStore{client: client, db: client.DB()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseSeriesStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{
		`CREATE TABLE IF NOT EXISTS ` + chSeriesTable + ` (
			name  LowCardinality(String),
			seq   UInt32,
			ts    DateTime64(3, 'UTC'),
			value Float64
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (name, ts, seq)`,
	})
}

// Save deletes the existing points of the series, then inserts the new ones.
// The delete runs with mutations_sync so the insert never races it.
func (s *ClickHouseSeriesStore) Save(ctx context.Context, ts *models.TimeSeries) error {
	if ts == nil || ts.Name == "" {
		return models.ErrInvalidSeriesName
	}
	if err := s.deleteRows(ctx, ts.Name); err != nil {
		return err
	}
	rows := make([][]any, ts.Len())
	for i := range rows {
		rows[i] = []any{ts.Name, uint32(i), ts.Timestamps[i].UTC(), ts.Values[i]}
	}
	q := fmt.Sprintf("INSERT INTO %s (name, seq, ts, value)", chSeriesTable)
	if err := s.client.InsertBatch(ctx, q, rows); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_series insert error",
				applogger.String("series", ts.Name),
				applogger.Int("points", len(rows)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save series %q: %w", ts.Name, err)
	}
	return nil
}

func (s *ClickHouseSeriesStore) Get(ctx context.Context, name string) (*models.TimeSeries, error) {
	q := fmt.Sprintf("SELECT ts, value FROM %s WHERE name = ? ORDER BY ts, seq", chSeriesTable)
	rows, err := s.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("get series %q: %w", name, err)
	}
	defer rows.Close()

	ts := &models.TimeSeries{Name: name}
	for rows.Next() {
		var t time.Time
		var v float64
		if err := rows.Scan(&t, &v); err != nil {
			return nil, err
		}
		ts.Timestamps = append(ts.Timestamps, t)
		ts.Values = append(ts.Values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if ts.Len() == 0 {
		return nil, models.ErrSeriesNotFound
	}
	return ts, nil
}

func (s *ClickHouseSeriesStore) List(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT name FROM %s ORDER BY name", chSeriesTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadAll reads every point in one ordered scan and splits it by name.
func (s *ClickHouseSeriesStore) LoadAll(ctx context.Context) ([]*models.TimeSeries, error) {
	q := fmt.Sprintf("SELECT name, ts, value FROM %s ORDER BY name, ts, seq", chSeriesTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_series query error", applogger.Error(err))
		}
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
		cur.Timestamps = append(cur.Timestamps, t)
		cur.Values = append(cur.Values, v)
	}
	return out, rows.Err()
}

func (s *ClickHouseSeriesStore) Delete(ctx context.Context, name string) error {
	var n uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE name = ?", chSeriesTable)
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&n); err != nil {
		return fmt.Errorf("delete series %q: %w", name, err)
	}
	if n == 0 {
		return models.ErrSeriesNotFound
	}
	return s.deleteRows(ctx, name)
}

func (s *ClickHouseSeriesStore) deleteRows(ctx context.Context, name string) error {
	q := fmt.Sprintf("ALTER TABLE %s DELETE WHERE name = ?", chSeriesTable)
	if _, err := s.db.ExecContext(ctx, q, name); err != nil {
		return fmt.Errorf("delete series %q: %w", name, err)
	}
	return nil
}

func (s *ClickHouseSeriesStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseSeriesStore) Close() error {
	return s.client.Close()
}
