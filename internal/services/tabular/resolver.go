// Package tabular turns raw tables into time series: it finds the column that
// holds the time axis and pairs it with a numeric target column.
package tabular

import (
	"fmt"
	"time"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/pkg/util"
)

// DefaultThreshold is the minimum fraction of parseable cells for a date column.
const DefaultThreshold = 0.9

// ColumnScore is the parse rate of one column.
type ColumnScore struct {
	Name     string
	Fraction float64
}

// ScoreColumns returns the fraction of cells in each column that parse as dates,
// in table order. An empty column scores 0.
func ScoreColumns(t models.Table) []ColumnScore {
	scores := make([]ColumnScore, 0, len(t.Columns))
	for _, c := range t.Columns {
		score := ColumnScore{Name: c.Name}
		if len(c.Values) > 0 {
			parsed := 0
			for _, v := range c.Values {
				if _, ok := util.ParseDate(v); ok {
					parsed++
				}
			}
			score.Fraction = float64(parsed) / float64(len(c.Values))
		}
		scores = append(scores, score)
	}
	return scores
}

// ResolveDateColumn picks the column with the highest date parse rate, provided
// it reaches threshold. Ties go to the earliest column. A threshold <= 0 means
// DefaultThreshold.
func ResolveDateColumn(t models.Table, threshold float64) (string, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	best := -1
	bestFraction := 0.0
	for i, s := range ScoreColumns(t) {
		if best < 0 || s.Fraction > bestFraction {
			best, bestFraction = i, s.Fraction
		}
	}
	if best < 0 || bestFraction < threshold {
		return "", fmt.Errorf("%w: best parse rate %.2f below %.2f", models.ErrNoDateColumnFound, bestFraction, threshold)
	}
	return t.Columns[best].Name, nil
}

// BuildSeries resolves the date column of t and pairs it with the target
// column. Rows whose date or value does not parse are dropped; the result is
// sorted by time.
func BuildSeries(name string, t models.Table, target string, threshold float64) (*models.TimeSeries, error) {
	valueCol, ok := t.Column(target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownColumn, target)
	}
	dateName, err := ResolveDateColumn(t, threshold)
	if err != nil {
		return nil, err
	}
	if dateName == target {
		return nil, fmt.Errorf("%w: target %q is the date column", models.ErrUnknownColumn, target)
	}
	dateCol, _ := t.Column(dateName)

	n := min(len(dateCol.Values), len(valueCol.Values))
	timestamps := make([]time.Time, 0, n)
	values := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		ts, ok := util.ParseDate(dateCol.Values[i])
		if !ok {
			continue
		}
		v, ok := util.ParseFloat(valueCol.Values[i])
		if !ok {
			continue
		}
		timestamps = append(timestamps, ts)
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %q has no parseable rows", models.ErrEmptySeries, name)
	}
	return models.NewTimeSeries(name, timestamps, values)
}
