package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"
)

// TimeSeries is a named, chronologically sorted sequence of (timestamp, value)
// pairs. Treat it as immutable: constructors copy their inputs.
type TimeSeries struct {
	Name       string
	Timestamps []time.Time
	Values     []float64
}

// NewTimeSeries copies timestamps and values and sorts them by time.
func NewTimeSeries(name string, timestamps []time.Time, values []float64) (*TimeSeries, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(timestamps), len(values))
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return timestamps[idx[a]].Before(timestamps[idx[b]])
	})

	ts := make([]time.Time, len(idx))
	vs := make([]float64, len(idx))
	for i, j := range idx {
		ts[i] = timestamps[j]
		vs[i] = values[j]
	}
	return &TimeSeries{Name: name, Timestamps: ts, Values: vs}, nil
}

// Len returns the number of points.
func (s *TimeSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Span returns the first and last timestamp. Both are zero for an empty series.
func (s *TimeSeries) Span() (time.Time, time.Time) {
	if s.Len() == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Timestamps[0], s.Timestamps[len(s.Timestamps)-1]
}

// Clone returns a deep copy.
func (s *TimeSeries) Clone() *TimeSeries {
	if s == nil {
		return nil
	}
	return &TimeSeries{
		Name:       s.Name,
		Timestamps: append([]time.Time(nil), s.Timestamps...),
		Values:     append([]float64(nil), s.Values...),
	}
}

// Window returns a copy holding the points with from <= t <= to. A zero
// bound leaves that side open.
func (s *TimeSeries) Window(from, to time.Time) *TimeSeries {
	n := s.Len()
	lo, hi := 0, n
	if !from.IsZero() {
		lo = sort.Search(n, func(i int) bool { return !s.Timestamps[i].Before(from) })
	}
	if !to.IsZero() {
		hi = sort.Search(n, func(i int) bool { return s.Timestamps[i].After(to) })
	}
	if hi < lo {
		hi = lo
	}
	return &TimeSeries{
		Name:       s.Name,
		Timestamps: append([]time.Time(nil), s.Timestamps[lo:hi]...),
		Values:     append([]float64(nil), s.Values[lo:hi]...),
	}
}

// View returns the series as plain report data.
func (s *TimeSeries) View() SeriesView {
	return SeriesView{Name: s.Name, Timestamps: s.Timestamps, Values: s.Values}
}

// Fingerprint encodes the points (not the name) as bytes. Two series with the
// same points have the same fingerprint.
func (s *TimeSeries) Fingerprint() []byte {
	buf := make([]byte, 0, 16*s.Len())
	for i := 0; i < s.Len(); i++ {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Timestamps[i].UnixNano()))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Values[i]))
	}
	return buf
}

// DecomposedSeries holds the additive components of a series. All component
// slices have the series' length and are defined at every index.
type DecomposedSeries struct {
	Series   *TimeSeries
	Period   int
	Trend    []float64
	Seasonal []float64
	Residual []float64
}
