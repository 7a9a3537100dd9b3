// Package metrics holds the prometheus collectors shared by the proxy, the
// spec fetcher and the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "speclens"

// Registry owns a private prometheus registry and the collectors recorded
// into it. A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	ProxyRequests *prometheus.CounterVec
	ProxyDuration *prometheus.HistogramVec
	SpecFetches   *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ProxyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Proxied requests by method and outcome (status class or error kind)",
			},
			[]string{"method", "outcome"},
		),

		ProxyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "duration_seconds",
				Help:      "Round trip time of proxied requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		SpecFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "spec",
				Name:      "fetches_total",
				Help:      "Remote spec fetches by kind (fetch, check) and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}

	r.registry.MustRegister(
		r.ProxyRequests,
		r.ProxyDuration,
		r.SpecFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveProxy records one proxied request. outcome is a status class such as
// "2xx" or an error kind such as "timeout".
func (r *Registry) ObserveProxy(method, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ProxyRequests.WithLabelValues(method, outcome).Inc()
	r.ProxyDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (r *Registry) ObserveFetch(kind, outcome string) {
	if r == nil {
		return
	}
	r.SpecFetches.WithLabelValues(kind, outcome).Inc()
}

// StatusClass maps 204 to "2xx".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return string(rune('0'+status/100)) + "xx"
}
