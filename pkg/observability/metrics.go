// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the sync pipeline and the read API.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics for the application. Each instance
// owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	stageDuration  *prometheus.HistogramVec
	nodesUpserted  *prometheus.CounterVec
	edgesUpserted  prometheus.Counter
	votesDropped   prometheus.Counter
	membersDropped prometheus.Counter
	batchesFlushed prometheus.Counter
	batchSize      prometheus.Histogram

	// HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates the metric set under namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall-clock duration of each pipeline stage",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"stage", "status"},
		),
		nodesUpserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_upserted_total",
				Help:      "Total number of graph nodes upserted",
			},
			[]string{"kind"},
		),
		edgesUpserted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edges_upserted_total",
				Help:      "Total number of VOTED_FOR edges upserted",
			},
		),
		votesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_dropped_total",
				Help:      "Votes skipped because their division was not ingested",
			},
		),
		membersDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "legislators_dropped_total",
				Help:      "Members skipped because they failed validation",
			},
		),
		batchesFlushed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "similarity_batches_flushed_total",
				Help:      "Similarity batches written to the document store",
			},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "similarity_batch_size",
				Help:      "Records per flushed similarity batch",
				Buckets:   prometheus.LinearBuckets(1, 5, 10),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.stageDuration,
		m.nodesUpserted,
		m.edgesUpserted,
		m.votesDropped,
		m.membersDropped,
		m.batchesFlushed,
		m.batchSize,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the Prometheus registry for this instance
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// StageCompleted records a stage duration.
func (m *Metrics) StageCompleted(stage string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// NodesUpserted counts node writes by kind.
func (m *Metrics) NodesUpserted(kind string, n int) {
	m.nodesUpserted.WithLabelValues(kind).Add(float64(n))
}

// EdgesUpserted counts edge writes.
func (m *Metrics) EdgesUpserted(n int) {
	m.edgesUpserted.Add(float64(n))
}

// VotesDropped counts filtered votes.
func (m *Metrics) VotesDropped(n int) {
	m.votesDropped.Add(float64(n))
}

// LegislatorsDropped counts members that failed validation.
func (m *Metrics) LegislatorsDropped(n int) {
	m.membersDropped.Add(float64(n))
}

// BatchFlushed records one similarity batch.
func (m *Metrics) BatchFlushed(size int) {
	m.batchesFlushed.Inc()
	m.batchSize.Observe(float64(size))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Push sends the registry to a Pushgateway under job. Batch runs use this
// since nothing scrapes them.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx)
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
