// Package metrics exposes Prometheus counters for the resolve and write paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortlink"

// Resolution outcomes
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeResolved = "resolved" // cache miss served from the store
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeError    = "error"
)

var (
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolutions_total",
		Help:      "Short code resolutions by outcome.",
	}, []string{"outcome"})

	MappingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mappings_created_total",
		Help:      "Mappings created, by code source (generated or alias).",
	}, []string{"source"})

	ClickFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "click_failures_total",
		Help:      "Background click increments that failed.",
	})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_errors_total",
		Help:      "Resolution cache errors by operation.",
	}, []string{"op"})

	ExpiredPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expired_purged_total",
		Help:      "Expired mappings deleted on read or by the sweeper.",
	})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
