// Package metrics exposes probe outcomes as prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juststeveking/iris/internal/monitor"
)

// Metrics holds the probe collectors and the registry they live in
type Metrics struct {
	registry *prometheus.Registry

	probes  *prometheus.CounterVec
	latency prometheus.Histogram
	up      prometheus.Gauge
}

// New creates the collectors in a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iris",
				Name:      "probe_total",
				Help:      "Health probes by result.",
			},
			[]string{"result"},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "iris",
				Name:      "probe_latency_seconds",
				Help:      "Round-trip time of health probes, successful or not.",
				Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		up: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "iris",
				Name:      "backend_up",
				Help:      "1 if the last completed probe was healthy, 0 otherwise.",
			},
		),
	}

	m.registry.MustRegister(m.probes, m.latency, m.up)

	return m
}

// Observe records one completed probe
func (m *Metrics) Observe(r monitor.Record) {
	m.probes.WithLabelValues(string(r.Status)).Inc()
	m.latency.Observe(r.Latency.Seconds())
	if r.Status == monitor.StatusHealthy {
		m.up.Set(1)
	} else {
		m.up.Set(0)
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Instrument wraps a prober so every check is observed
func (m *Metrics) Instrument(p monitor.Prober) monitor.Prober {
	return &instrumented{next: p, metrics: m}
}

type instrumented struct {
	next    monitor.Prober
	metrics *Metrics
}

func (i *instrumented) Check(ctx context.Context) monitor.Record {
	r := i.next.Check(ctx)
	i.metrics.Observe(r)
	return r
}
