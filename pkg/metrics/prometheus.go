package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	matchesTotal      *prometheus.CounterVec
	matchCandidates   prometheus.Histogram
	matchDuration     *prometheus.HistogramVec
	candidateFailures *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	seriesStored      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		matchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapefinder_matches_total",
				Help: "Total number of ranking passes by distance mode",
			},
			[]string{"mode"},
		),
		matchCandidates: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shapefinder_match_candidates",
				Help:    "Candidates ranked per match",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		matchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shapefinder_match_duration_seconds",
				Help:    "End to end duration of a match",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"mode"},
		),
		candidateFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapefinder_candidate_failures_total",
				Help: "Candidates excluded from a match because their features could not be built",
			},
			[]string{"reason"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapefinder_feature_cache_lookups_total",
				Help: "Feature cache lookups by result",
			},
			[]string{"result"},
		),
		seriesStored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapefinder_series_stored_total",
				Help: "Series saved per storage backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapefinder_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shapefinder_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMatch records one completed ranking pass.
func (r *Recorder) RecordMatch(mode string, candidates int, seconds float64) {
	r.matchesTotal.WithLabelValues(mode).Inc()
	r.matchCandidates.Observe(float64(candidates))
	r.matchDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordCandidateFailure records a candidate dropped from a match.
func (r *Recorder) RecordCandidateFailure(reason string) {
	r.candidateFailures.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a feature cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordSeriesStored records a series save.
func (r *Recorder) RecordSeriesStored(backend string) {
	r.seriesStored.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
