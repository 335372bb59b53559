package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sharesCreated   *prometheus.CounterVec
	askDuration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholars",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scholars",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		sharesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholars",
			Name:      "shares_created_total",
			Help:      "Snapshots stored, by creation path.",
		}, []string{"source"}),
		askDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scholars",
			Name:      "ask_duration_seconds",
			Help:      "Time spent waiting for all scholar answers.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.sharesCreated,
		m.askDuration,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) shareCreated(source string) {
	if m == nil {
		return
	}
	m.sharesCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) observeAsk(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.askDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
