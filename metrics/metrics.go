// Package metrics provides Prometheus metrics for the survivor pool service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "survivor"
	subsystem = "pool"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Standings metrics
	standingsRecomputes        prometheus.Counter
	standingsRecomputeDuration prometheus.Histogram
	standingsCacheHits         prometheus.Counter
	standingsCacheMisses       prometheus.Counter

	// Entry metrics
	entriesSubmitted prometheus.Counter
	entriesRejected  *prometheus.CounterVec

	// Roster sync metrics
	syncRuns         prometheus.Counter
	syncFailures     prometheus.Counter
	syncDuration     prometheus.Histogram
	syncFuzzyMatches prometheus.Counter

	// Auth metrics
	loginAttempts *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager

// Custom registry to keep the scrape output down to our own metrics.
var customRegistry = prometheus.NewRegistry()

func init() {
	globalManager = newManager(customRegistry)
}

func newManager(registry prometheus.Registerer) *Manager {
	auto := promauto.With(registry)

	return &Manager{
		httpRequests: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by endpoint, method and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		httpRequestDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),

		standingsRecomputes: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "standings_recomputes_total",
			Help:      "Total number of standings recomputations",
		}),
		standingsRecomputeDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "standings_recompute_duration_seconds",
			Help:      "Standings recomputation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		standingsCacheHits: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "standings_cache_hits_total",
			Help:      "Total number of standings served from cache",
		}),
		standingsCacheMisses: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "standings_cache_misses_total",
			Help:      "Total number of standings requests that forced a recompute",
		}),

		entriesSubmitted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries_submitted_total",
			Help:      "Total number of accepted entry submissions",
		}),
		entriesRejected: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "entries_rejected_total",
				Help:      "Total number of rejected entry submissions by reason",
			},
			[]string{"reason"},
		),

		syncRuns: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "roster_sync_runs_total",
			Help:      "Total number of completed roster sync runs",
		}),
		syncFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "roster_sync_failures_total",
			Help:      "Total number of failed roster sync runs",
		}),
		syncDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "roster_sync_duration_seconds",
			Help:      "Roster sync duration in seconds per season",
			Buckets:   prometheus.DefBuckets,
		}),
		syncFuzzyMatches: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "roster_sync_fuzzy_matches_total",
			Help:      "Total number of wiki names matched to stored contestants by edit distance",
		}),

		loginAttempts: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "login_attempts_total",
				Help:      "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
}

// RecordStandingsRecompute records one standings recomputation and its duration.
func RecordStandingsRecompute(seconds float64) {
	globalManager.standingsRecomputes.Inc()
	globalManager.standingsRecomputeDuration.Observe(seconds)
}

// RecordStandingsCacheHit increments the standings cache hit counter.
func RecordStandingsCacheHit() {
	globalManager.standingsCacheHits.Inc()
}

// RecordStandingsCacheMiss increments the standings cache miss counter.
func RecordStandingsCacheMiss() {
	globalManager.standingsCacheMisses.Inc()
}

// RecordEntrySubmitted increments the accepted entries counter.
func RecordEntrySubmitted() {
	globalManager.entriesSubmitted.Inc()
}

// RecordEntryRejected increments the rejected entries counter for a reason.
func RecordEntryRejected(reason string) {
	globalManager.entriesRejected.WithLabelValues(reason).Inc()
}

// RecordSyncRun records one completed roster sync and its duration.
func RecordSyncRun(seconds float64) {
	globalManager.syncRuns.Inc()
	globalManager.syncDuration.Observe(seconds)
}

// RecordSyncFailure increments the failed sync counter.
func RecordSyncFailure() {
	globalManager.syncFailures.Inc()
}

// RecordSyncFuzzyMatch increments the fuzzy name match counter.
func RecordSyncFuzzyMatch() {
	globalManager.syncFuzzyMatches.Inc()
}

// RecordLoginAttempt records a login attempt with outcome "success" or "failure".
func RecordLoginAttempt(outcome string) {
	globalManager.loginAttempts.WithLabelValues(outcome).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler returns an http.Handler that serves the metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
