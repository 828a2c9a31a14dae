// Package metrics holds the prometheus collectors shared by the server and services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by route pattern, method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coa",
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"route", "method", "code"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coa",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// COAOperations counts COA manager calls by operation and outcome.
	COAOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coa",
		Name:      "operations_total",
		Help:      "COA manager operations.",
	}, []string{"op", "result"})

	// CacheLookups counts CMS loader cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coa",
		Name:      "cms_cache_lookups_total",
		Help:      "CMS content cache lookups.",
	}, []string{"result"})

	// IntegrityIssues reports the issue count of the last integrity audit by kind.
	IntegrityIssues = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "coa",
		Name:      "integrity_issues",
		Help:      "Issues found by the last COA file integrity audit.",
	}, []string{"kind"})

	// EmailsSent counts dispatched notification emails by template and outcome.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coa",
		Name:      "emails_total",
		Help:      "Notification emails dispatched.",
	}, []string{"type", "result"})
)

// Result labels an outcome as ok or error.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCOA records one COA manager call.
func ObserveCOA(op string, err error) {
	COAOperations.WithLabelValues(op, Result(err)).Inc()
}
