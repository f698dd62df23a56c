package repository

import (
	"context"
	"sort"
	"sync"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/domain/repository"
)

// MemorySeriesStore is an in-memory SeriesStore. Series are copied on the way
// in and out so callers cannot mutate stored data.
type MemorySeriesStore struct {
	mu   sync.RWMutex
	data map[string]*models.TimeSeries
}

var _ repository.SeriesStore = (*MemorySeriesStore)(nil)

func NewMemorySeriesStore() *MemorySeriesStore {
	return &MemorySeriesStore{data: make(map[string]*models.TimeSeries)}
}

func (s *MemorySeriesStore) Init(context.Context) error { return nil }

func (s *MemorySeriesStore) Save(_ context.Context, ts *models.TimeSeries) error {
	if ts == nil || ts.Name == "" {
		return models.ErrInvalidSeriesName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ts.Name] = ts.Clone()
	return nil
}

func (s *MemorySeriesStore) Get(_ context.Context, name string) (*models.TimeSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.data[name]
	if !ok {
		return nil, models.ErrSeriesNotFound
	}
	return ts.Clone(), nil
}

func (s *MemorySeriesStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LoadAll returns every series ordered by name.
func (s *MemorySeriesStore) LoadAll(ctx context.Context) ([]*models.TimeSeries, error) {
	names, _ := s.List(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TimeSeries, 0, len(names))
	for _, name := range names {
		if ts, ok := s.data[name]; ok {
			out = append(out, ts.Clone())
		}
	}
	return out, nil
}

func (s *MemorySeriesStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; !ok {
		return models.ErrSeriesNotFound
	}
	delete(s.data, name)
	return nil
}

func (s *MemorySeriesStore) Health(context.Context) error { return nil }

func (s *MemorySeriesStore) Close() error { return nil }
