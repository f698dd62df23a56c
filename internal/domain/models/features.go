package models

import "time"

// Transform carries the z-score parameters of one component so the scaling
// can be applied again or inverted.
type Transform struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Apply scales values with the stored parameters. A zero Std maps every value to 0.
func (t Transform) Apply(values []float64) []float64 {
	out := make([]float64, len(values))
	if t.Std == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - t.Mean) / t.Std
	}
	return out
}

// Invert maps scaled values back to the original units.
func (t Transform) Invert(scaled []float64) []float64 {
	out := make([]float64, len(scaled))
	for i, z := range scaled {
		out[i] = z*t.Std + t.Mean
	}
	return out
}

// NormalizedComponent is a z-scored component with the transform that produced it.
type NormalizedComponent struct {
	Values    []float64
	Transform Transform
}

// FeatureDims is the dimension of a FeatureVector: trend, seasonal, residual.
const FeatureDims = 3

// FeatureVector is (trend_z, seasonal_z, residual_z) at one timestamp.
type FeatureVector [FeatureDims]float64

// FeatureSequence is one FeatureVector per timestamp of a series.
type FeatureSequence []FeatureVector

// Candidate is a stored series prepared for matching. Timestamps and Values
// are kept for reporting only.
type Candidate struct {
	Name       string
	Features   FeatureSequence
	Timestamps []time.Time
	Values     []float64
}
