// Package metrics exposes memdeck's Prometheus metrics. A Collector observes
// cache fetches and mutation outcomes and serves them on its own registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/memdeck/pkg/cache"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeDeclined  = "declined"
	OutcomeNotFound  = "not_found"
	OutcomeTransport = "transport"
	OutcomeError     = "error"
)

// Collector holds all Prometheus metrics for memdeck.
type Collector struct {
	registry *prometheus.Registry

	CacheFetches      *prometheus.CounterVec
	CacheFetchSeconds *prometheus.HistogramVec
	CacheInflight     *prometheus.GaugeVec

	Mutations *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Ensure Collector observes the cache and the coordinator
var (
	_ cache.Observer    = (*Collector)(nil)
	_ mutation.Observer = (*Collector)(nil)
)

// NewCollector creates a collector on a fresh registry. Each collector is
// independent, so tests can build as many as they like.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		CacheFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_fetches_total",
				Help:      "Total number of cache fetches by key and outcome",
			},
			[]string{"key", "outcome"},
		),
		CacheFetchSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_fetch_duration_seconds",
				Help:      "Cache fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		CacheInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_fetches_inflight",
				Help:      "Number of cache fetches currently running",
			},
			[]string{"key"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Total number of add and delete attempts by outcome",
			},
			[]string{"op", "outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.CacheFetches,
		c.CacheFetchSeconds,
		c.CacheInflight,
		c.Mutations,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) FetchStarted(key string) {
	c.CacheInflight.WithLabelValues(key).Inc()
}

func (c *Collector) FetchSettled(key string, elapsed time.Duration, err error) {
	c.CacheInflight.WithLabelValues(key).Dec()
	c.CacheFetches.WithLabelValues(key, Outcome(err)).Inc()
	c.CacheFetchSeconds.WithLabelValues(key).Observe(elapsed.Seconds())
}

func (c *Collector) MutationSettled(op mutation.Op, err error) {
	c.Mutations.WithLabelValues(string(op), Outcome(err)).Inc()
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case memory.IsValidation(err):
		return OutcomeInvalid
	case errors.Is(err, memory.ErrDeleteDeclined):
		return OutcomeDeclined
	case memory.IsNotFound(err):
		return OutcomeNotFound
	case memory.IsTransport(err):
		return OutcomeTransport
	default:
		return OutcomeError
	}
}
