// Package observability provides Prometheus metrics and the in-memory log
// tail shown by the dashboard.
package observability

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trendgoat"

// Metrics tracks operational metrics for collection runs.
type Metrics struct {
	reg *prometheus.Registry

	// Run metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	RunInProgress  prometheus.Gauge
	SourceDuration *prometheus.HistogramVec
	SourceErrors   *prometheus.CounterVec

	// Record metrics
	RecordsFetched *prometheus.CounterVec
	RecordsDropped *prometheus.CounterVec
	RecordsAdded   *prometheus.CounterVec
	RecordsStored  *prometheus.GaugeVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// plain totals for the dashboard
	requests atomic.Int64
	failed   atomic.Int64
	runs     atomic.Int64
	fetched  atomic.Int64
	added    atomic.Int64
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{reg: reg}
	m.initRunMetrics(factory)
	m.initRecordMetrics(factory)
	m.initHTTPMetrics(factory)
	return m
}

func (m *Metrics) initRunMetrics(factory promauto.Factory) {
	m.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_runs_total",
			Help:      "Total number of collection runs by outcome",
		},
		[]string{"status"},
	)
	m.RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_run_duration_seconds",
			Help:      "Duration of complete collection runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	m.RunInProgress = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_run_in_progress",
			Help:      "1 while a collection run is active",
		},
	)
	m.SourceDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Duration of one source collection",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"source"},
	)
	m.SourceErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Total number of failed source collections",
		},
		[]string{"source"},
	)
}

func (m *Metrics) initRecordMetrics(factory promauto.Factory) {
	m.RecordsFetched = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Records returned by collectors",
		},
		[]string{"source", "method"},
	)
	m.RecordsDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Records dropped by the clean pipeline",
		},
		[]string{"source"},
	)
	m.RecordsAdded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_added_total",
			Help:      "New records merged into storage",
		},
		[]string{"source"},
	)
	m.RecordsStored = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_stored",
			Help:      "Records currently stored per source",
		},
		[]string{"source"},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP attempts by host and status code",
		},
		[]string{"host", "code"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream HTTP attempt latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"host"},
	)
}

// ObserveRequest records one upstream HTTP attempt. A zero status means the
// attempt failed before a response arrived.
func (m *Metrics) ObserveRequest(host string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(host, code).Inc()
	m.RequestDuration.WithLabelValues(host).Observe(d.Seconds())
	m.requests.Add(1)
	if status == 0 || status >= 400 {
		m.failed.Add(1)
	}
}

// ObserveSource records the outcome of one source collection.
func (m *Metrics) ObserveSource(source, method string, fetched, dropped, added, total int, d time.Duration, err error) {
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		m.SourceErrors.WithLabelValues(source).Inc()
		return
	}
	m.RecordsFetched.WithLabelValues(source, method).Add(float64(fetched))
	m.RecordsDropped.WithLabelValues(source).Add(float64(dropped))
	m.RecordsAdded.WithLabelValues(source).Add(float64(added))
	m.RecordsStored.WithLabelValues(source).Set(float64(total))
	m.fetched.Add(int64(fetched))
	m.added.Add(int64(added))
}

// ObserveRun records a finished collection run.
func (m *Metrics) ObserveRun(ok bool, d time.Duration) {
	status := "success"
	if !ok {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.runs.Add(1)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Snapshot returns the process totals as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":  m.requests.Load(),
		"requests_failed": m.failed.Load(),
		"runs_total":      m.runs.Load(),
		"records_fetched": m.fetched.Load(),
		"records_added":   m.added.Load(),
	}
}
