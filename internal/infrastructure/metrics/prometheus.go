package metrics

import (
	"net/http"

	"shopify-merchant-link/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "merchant_link"

// Prometheus exposes service counters on its own registry
type Prometheus struct {
	registry   *prometheus.Registry
	handshakes *prometheus.CounterVec
	webhooks   *prometheus.CounterVec
	links      *prometheus.CounterVec
}

var _ ports.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the service collectors plus Go and process collectors
func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_handshakes_total",
			Help:      "OAuth handshake steps by stage and outcome.",
		}, []string{"stage", "outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by topic and outcome.",
		}, []string{"topic", "outcome"}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_links_total",
			Help:      "Merchant to store link attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.handshakes,
		m.webhooks,
		m.links,
	)
	return m
}

func (m *Prometheus) ObserveHandshake(stage, outcome string) {
	m.handshakes.WithLabelValues(stage, outcome).Inc()
}

func (m *Prometheus) ObserveWebhook(topic, outcome string) {
	m.webhooks.WithLabelValues(topic, outcome).Inc()
}

func (m *Prometheus) ObserveLink(outcome string) {
	m.links.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
