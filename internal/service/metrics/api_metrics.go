package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shapefinder",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shapefinder",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint",
		},
		[]string{"endpoint", "code"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors)
	})
}

// Observe records the latency of one call to endpoint started at start.
func Observe(endpoint string, start time.Time) {
	APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// Fail counts a failed call to endpoint.
func Fail(endpoint, code string) {
	APIErrors.WithLabelValues(endpoint, code).Inc()
}
