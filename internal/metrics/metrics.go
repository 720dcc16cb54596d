// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "plant_gallery"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// UpstreamRequestsTotal counts calls to third-party APIs by outcome
	// ("ok", "network", "status", "parse", "rate_limited").
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Outbound requests to third-party APIs by upstream and outcome.",
	}, []string{"upstream", "outcome"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_latency_seconds",
		Help:      "Latency of outbound requests to third-party APIs.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"upstream"})

	SearchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_cache_hits_total",
		Help:      "Image search pages served from the cache.",
	})

	SearchCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_cache_misses_total",
		Help:      "Image search pages not found (or expired) in the cache.",
	})

	SearchCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "search_cache_entries",
		Help:      "Rows currently stored in the image search cache.",
	})

	RecommendationsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "recommendations_returned",
		Help:      "Number of plant recommendations per successful AI reply.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})
)

const (
	UpstreamPixabay = "pixabay"
	UpstreamGemini  = "gemini"
)
