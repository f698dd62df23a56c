// Package decompose splits a series into additive trend, seasonal and residual
// components using classical moving-average decomposition.
package decompose

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"ShapeFinder/internal/domain/models"
)

// DefaultPeriod is the seasonal period used when none is configured.
const DefaultPeriod = 12

// Decompose performs additive decomposition Y = T + S + R with seasonal period
// period. The series must hold at least 2*period points. The trend's
// unsmoothable edges are extrapolated linearly so every component is defined
// at every index.
func Decompose(series *models.TimeSeries, period int) (*models.DecomposedSeries, error) {
	if period < 2 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidPeriod, period)
	}
	n := series.Len()
	if n < 2*period {
		return nil, fmt.Errorf("%w: %d points, need %d for period %d", models.ErrInsufficientData, n, 2*period, period)
	}
	values := series.Values

	trend := movingAverage(values, period)
	extrapolateEdges(trend, period)

	// Average deviation from trend per phase, centred to sum to zero.
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range values {
		pattern[i%period] += v - trend[i]
		counts[i%period]++
	}
	mean := 0.0
	for i := range pattern {
		pattern[i] /= float64(counts[i])
		mean += pattern[i]
	}
	mean /= float64(period)
	for i := range pattern {
		pattern[i] -= mean
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, v := range values {
		seasonal[i] = pattern[i%period]
		residual[i] = v - trend[i] - seasonal[i]
	}

	return &models.DecomposedSeries{
		Series:   series,
		Period:   period,
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
	}, nil
}

// movingAverage is the centred moving average: 2xP for even P, P for odd P.
// Only [half, n-half) is filled; the edges are left for extrapolateEdges.
func movingAverage(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		}
		trend[i] = sum / float64(period)
	}
	return trend
}

// extrapolateEdges fills the first and last period/2 trend points with a least
// squares line through the nearest period defined points on each side.
func extrapolateEdges(trend []float64, period int) {
	n := len(trend)
	half := period / 2
	if half == 0 {
		return
	}
	lo, hi := half, n-half // defined range [lo, hi)
	k := min(period, hi-lo)

	fit := func(from int) (alpha, beta float64) {
		xs := make([]float64, k)
		ys := make([]float64, k)
		for i := 0; i < k; i++ {
			xs[i] = float64(from + i)
			ys[i] = trend[from+i]
		}
		if k == 1 {
			return ys[0], 0
		}
		return stat.LinearRegression(xs, ys, nil, false)
	}

	alpha, beta := fit(lo)
	for i := 0; i < lo; i++ {
		trend[i] = alpha + beta*float64(i)
	}
	alpha, beta = fit(hi - k)
	for i := hi; i < n; i++ {
		trend[i] = alpha + beta*float64(i)
	}
}

// Reconstruct sums the components back into the original values.
func Reconstruct(d *models.DecomposedSeries) []float64 {
	out := make([]float64, len(d.Trend))
	for i := range out {
		out[i] = d.Trend[i] + d.Seasonal[i] + d.Residual[i]
	}
	return out
}
