package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the collectors exported on /metrics. Each server owns its
// registry so several servers can live in one process.
type metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	renders         *prometheus.CounterVec
	reorderUpdates  prometheus.Counter
	reorderFailures prometheus.Counter
	messages        prometheus.Counter
	gatewayClients  prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "renders_total",
			Help:      "Message content renders by output format.",
		}, []string{"format"}),
		reorderUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "reorder_updates_total",
			Help:      "Channel updates stored by reorder requests.",
		}),
		reorderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "reorder_failures_total",
			Help:      "Reorder requests rejected or rolled back.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "messages_created_total",
			Help:      "Messages stored.",
		}),
		gatewayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hearth",
			Name:      "gateway_clients",
			Help:      "Identified gateway connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests,
		m.renders,
		m.reorderUpdates,
		m.reorderFailures,
		m.messages,
		m.gatewayClients,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
