// Package metrics owns the Prometheus registry of the census search service
// and the collectors the handlers report into. All recording methods are
// safe to call on a nil *Registry, which turns them into no-ops.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultBuckets are the default histogram buckets (in seconds).
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Chunk fetch outcomes.
const (
	FetchOK     = "ok"
	FetchFailed = "failed"
)

// Reasons a neighbour label is dropped from a vector search response.
const (
	DropSentinel = "sentinel"
	DropUnmapped = "unmapped"
	DropFetch    = "fetch"
	DropNoMatch  = "no_match"
)

// Registry is an isolated Prometheus registry with the service collectors.
type Registry struct {
	reg *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	chunkFetches    *prometheus.CounterVec
	labelsDropped   *prometheus.CounterVec
}

// New creates a Registry whose metrics carry a constant service label.
func New(service string) *Registry {
	reg := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": service}, reg)

	r := &Registry{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "census_http_requests_total",
			Help: "Handled HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "census_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: DefaultBuckets,
		}, []string{"route"}),
		chunkFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "census_chunk_fetches_total",
			Help: "Remote chunk file fetches by outcome.",
		}, []string{"outcome"}),
		labelsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "census_labels_dropped_total",
			Help: "Neighbour labels omitted from vector search responses by reason.",
		}, []string{"reason"}),
	}

	wrapped.MustRegister(r.requests, r.requestDuration, r.chunkFetches, r.labelsDropped)
	wrapped.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRequest records one handled request.
func (r *Registry) ObserveRequest(route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ChunkFetch records the outcome of one remote chunk fetch.
func (r *Registry) ChunkFetch(outcome string) {
	if r == nil {
		return
	}
	r.chunkFetches.WithLabelValues(outcome).Inc()
}

// LabelDropped records a label left out of a response.
func (r *Registry) LabelDropped(reason string) {
	if r == nil {
		return
	}
	r.labelsDropped.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
