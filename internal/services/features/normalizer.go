package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ShapeFinder/internal/domain/models"
)

// Normalize z-scores values using their own population mean and standard
// deviation. Non-finite entries count as 0. A constant input yields all zeros.
func Normalize(values []float64) models.NormalizedComponent {
	clean := make([]float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean[i] = v
		}
	}
	if len(clean) == 0 {
		return models.NormalizedComponent{Values: clean}
	}

	mean, variance := stat.PopMeanVariance(clean, nil)
	std := math.Sqrt(variance)
	// Rounding can leave a tiny variance on constant input.
	if std <= 1e-12*math.Max(1, math.Abs(mean)) {
		std = 0
	}
	tr := models.Transform{Mean: mean, Std: std}
	return models.NormalizedComponent{Values: tr.Apply(clean), Transform: tr}
}
