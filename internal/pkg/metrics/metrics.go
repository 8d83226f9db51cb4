/*
Package metrics holds the Prometheus collectors of the chat core.

Collectors are registered on a dedicated registry so tests can build several servers in
one process; the HTTP layer exposes it on /metrics.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lanchat"

// Metrics is the set of collectors updated by the session and routing code.
type Metrics struct {
	registry *prometheus.Registry

	// Connections is the number of open WebSocket connections, authenticated or not.
	Connections prometheus.Gauge

	// OnlineSessions is the number of authenticated sessions in the presence registry.
	OnlineSessions prometheus.Gauge

	// Envelopes counts inbound envelopes by kind.
	Envelopes *prometheus.CounterVec

	// Deliveries counts outbound envelopes by result (queued, dropped).
	Deliveries *prometheus.CounterVec
}

// New builds a Metrics with its own registry, including Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open WebSocket connections.",
		}),
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_online",
			Help:      "Authenticated sessions currently online.",
		}),
		Envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_received_total",
			Help:      "Inbound envelopes by kind.",
		}, []string{"kind"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound envelopes by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.Connections,
		m.OnlineSessions,
		m.Envelopes,
		m.Deliveries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
