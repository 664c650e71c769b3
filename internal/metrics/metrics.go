// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Telemetry sampler
	SamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invmon_telemetry_samples_total",
		Help: "Telemetry samples persisted, by rollup decision",
	}, []string{"decision"})
	SampleFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invmon_telemetry_sample_failures_total",
		Help: "Telemetry samples dropped because sampling or persistence failed",
	})
	RAMUsageMean = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "invmon_telemetry_ram_usage_mean_percent",
		Help: "Running mean of RAM usage since process start",
	})
	RankTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invmon_telemetry_rank_total",
		Help: "Samples by performance rank",
	}, []string{"rank"})

	// Rating aggregator
	RatingListDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "invmon_rating_list_duration_seconds",
		Help:    "Time to build the feedback listing with supplier ratings",
		Buckets: prometheus.DefBuckets,
	})
	RatingLookupFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invmon_rating_lookup_failures_total",
		Help: "Supplier rating lookups that failed, by rating kind",
	}, []string{"kind"})

	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invmon_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	registerOnce sync.Once
)

func init() {
	Register()
}

// Register adds every collector to the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SamplesTotal,
			SampleFailuresTotal,
			RAMUsageMean,
			RankTotal,
			RatingListDuration,
			RatingLookupFailuresTotal,
			HTTPRequestsTotal,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
