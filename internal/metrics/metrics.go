// Package metrics bundles the Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeConfigError   = "config_error"
	OutcomeGatewayError  = "gateway_error"
	OutcomeProvisionFail = "provision_error"
	OutcomeLoadError     = "load_error"
)

// Metrics bundles Prometheus collectors for the service.
type Metrics struct {
	Registry         *prometheus.Registry
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	RunsTotal        *prometheus.CounterVec
	RowsInserted     prometheus.Counter
	RunDuration      prometheus.Histogram
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	upstream := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarweb_upstream_requests_total",
			Help: "Total requests issued to the Similarweb API by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)
	upstreamDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similarweb_upstream_request_duration_seconds",
			Help:    "Similarweb API request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarweb_runs_total",
			Help: "Total ingestion runs by outcome.",
		},
		[]string{"outcome"},
	)
	rows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "similarweb_rows_inserted_total",
			Help: "Total rows appended to the destination table.",
		},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "similarweb_run_duration_seconds",
			Help:    "Wall-clock duration of ingestion runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	registry.MustRegister(upstream, upstreamDuration, runs, rows, runDuration)

	return &Metrics{
		Registry:         registry,
		UpstreamRequests: upstream,
		UpstreamDuration: upstreamDuration,
		RunsTotal:        runs,
		RowsInserted:     rows,
		RunDuration:      runDuration,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one upstream request. status 0 means a transport failure.
func (m *Metrics) ObserveUpstream(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequests.WithLabelValues(endpoint, label).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(outcome string, inserted int, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RowsInserted.Add(float64(inserted))
	m.RunDuration.Observe(d.Seconds())
}
