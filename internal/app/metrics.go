package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's Prometheus collectors, kept on their own
// registry so tests can build as many servers as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
	specs    prometheus.Gauge
	events   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextpm",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nextpm",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextpm",
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot reloads by result.",
		}, []string{"result"}),
		specs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nextpm",
			Name:      "specs",
			Help:      "Specs in the current snapshot.",
		}),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nextpm",
			Name:      "timeline_events",
			Help:      "Timeline events in the current snapshot.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.reloads, m.specs, m.events)
	return m
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) observeReload(snap *Snapshot) {
	result := "ok"
	if snap.IndexErr != nil || snap.TimelineErr != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
	m.specs.Set(float64(len(snap.Index.Records)))
	m.events.Set(float64(len(snap.Timeline.Events)))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
