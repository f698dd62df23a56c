// Package features turns a time series into the per-timestamp feature vectors
// that the distance engine compares.
package features

import (
	"fmt"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/services/decompose"
)

// Extraction is the full result of running the pipeline on one series.
type Extraction struct {
	Decomposed *models.DecomposedSeries
	Trend      models.NormalizedComponent
	Seasonal   models.NormalizedComponent
	Residual   models.NormalizedComponent
	Features   models.FeatureSequence
}

// Extract decomposes series with the given period, normalizes each component
// independently and assembles the feature sequence.
func Extract(series *models.TimeSeries, period int) (*Extraction, error) {
	d, err := decompose.Decompose(series, period)
	if err != nil {
		return nil, fmt.Errorf("decompose %q: %w", series.Name, err)
	}
	ex := &Extraction{
		Decomposed: d,
		Trend:      Normalize(d.Trend),
		Seasonal:   Normalize(d.Seasonal),
		Residual:   Normalize(d.Residual),
	}
	ex.Features, err = Build(ex.Trend, ex.Seasonal, ex.Residual)
	if err != nil {
		return nil, fmt.Errorf("build features %q: %w", series.Name, err)
	}
	return ex, nil
}

// Candidate runs Extract and wraps the result for ranking.
func Candidate(series *models.TimeSeries, period int) (models.Candidate, error) {
	ex, err := Extract(series, period)
	if err != nil {
		return models.Candidate{}, err
	}
	return models.Candidate{
		Name:       series.Name,
		Features:   ex.Features,
		Timestamps: series.Timestamps,
		Values:     series.Values,
	}, nil
}
