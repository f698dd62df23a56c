package features

import (
	"fmt"

	"ShapeFinder/internal/domain/models"
)

// Build pairs same-index entries of the normalized trend, seasonal and
// residual components into one FeatureSequence.
func Build(trend, seasonal, residual models.NormalizedComponent) (models.FeatureSequence, error) {
	n := len(trend.Values)
	if len(seasonal.Values) != n || len(residual.Values) != n {
		return nil, fmt.Errorf("%w: trend=%d seasonal=%d residual=%d",
			models.ErrLengthMismatch, n, len(seasonal.Values), len(residual.Values))
	}
	seq := make(models.FeatureSequence, n)
	for i := 0; i < n; i++ {
		seq[i] = models.FeatureVector{trend.Values[i], seasonal.Values[i], residual.Values[i]}
	}
	return seq, nil
}
