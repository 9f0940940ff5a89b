package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "routegen"

type metrics struct {
	registry         *prometheus.Registry
	documentRequests prometheus.Counter
	reloads          *prometheus.CounterVec
	webhook          *prometheus.CounterVec
	services         prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		documentRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "document_requests_total",
			Help:      "Routing document requests served.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reloads_total",
			Help:      "Inventory reload attempts by result.",
		}, []string{"result"}),
		webhook: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_publish_total",
			Help:      "Webhook snapshot publications by result.",
		}, []string{"result"}),
		services: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "services",
			Help:      "Services in the current routing document.",
		}),
	}
	m.registry.MustRegister(
		m.documentRequests,
		m.reloads,
		m.webhook,
		m.services,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *metrics) observeSnapshot(snap *Snapshot) {
	if m == nil || snap == nil {
		return
	}
	m.services.Set(float64(len(snap.Document.HTTP.Services)))
}
