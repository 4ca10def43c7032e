// Package metrics holds the Prometheus collectors shared across fraudlens.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudlens_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// ScansTotal counts finished scans by outcome: "ok", "cached" or an
	// error kind.
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_scans_total",
			Help: "Total number of scans by outcome",
		},
		[]string{"outcome"},
	)

	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraudlens_scan_duration_seconds",
			Help:    "End-to-end scan pipeline duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_cache_lookups_total",
			Help: "Scan cache lookups by result",
		},
		[]string{"result"},
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fraudlens_cache_evictions_total",
			Help: "Entries evicted because the cache was over capacity",
		},
	)

	GateActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudlens_gate_active",
			Help: "Scans currently holding a gate slot",
		},
	)

	GateQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudlens_gate_queued",
			Help: "Scans waiting for a gate slot",
		},
	)

	// OracleRequests counts oracle calls by operation and result:
	// "ok", "quota", "error" or "malformed".
	OracleRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_oracle_requests_total",
			Help: "Risk oracle calls by operation and result",
		},
		[]string{"op", "result"},
	)

	RiskScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraudlens_risk_score",
			Help:    "Distribution of reported risk scores",
			Buckets: []float64{20, 40, 60, 80, 100},
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ScansTotal,
		ScanDuration,
		CacheLookups,
		CacheEvictions,
		GateActive,
		GateQueued,
		OracleRequests,
		RiskScores,
	)
}
