package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	runs             *prometheus.CounterVec // update runs by outcome
	runDuration      prometheus.Histogram   // time per run
	lookupRequests   *prometheus.CounterVec // external IP service fetches
	providerRequests *prometheus.CounterVec // authority requests
	cacheRequests    *prometheus.CounterVec // cache file operations
	changePolls      *prometheus.CounterVec // propagation status polls
}

func (m *Metrics) IncRun(outcome string) {
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetRunDuration(d time.Duration) {
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) IncLookupRequest(service string, success bool) {
	m.lookupRequests.WithLabelValues(service, boolToResult(success)).Inc()
}

func (m *Metrics) IncProviderRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	m.providerRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncCacheRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	m.cacheRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncChangePoll(status string) {
	m.changePolls.WithLabelValues(status).Inc()
}

func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "read", "update", "submit", "poll":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "aws_ddns"

	m := &Metrics{
		registry: registry,

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total update runs by outcome",
		}, []string{"outcome"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of update runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		lookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Total external IP lookup requests",
		}, []string{"service", "status"}),

		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total authoritative DNS service requests",
		}, []string{"operation", "status"}),

		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Total cache file operations",
		}, []string{"operation", "status"}),

		changePolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_polls_total",
			Help:      "Total change propagation polls by reported status",
		}, []string{"status"}),
	}

	if register {
		registry.MustRegister(
			m.runs,
			m.runDuration,
			m.lookupRequests,
			m.providerRequests,
			m.cacheRequests,
			m.changePolls,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
