package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. Every method is safe on a nil receiver so
// services can be built without metrics.
type Metrics struct {
	registry *prometheus.Registry

	salesRecorded  prometheus.Counter
	salesRejected  *prometheus.CounterVec
	payments       *prometheus.CounterVec
	paywallHits    *prometheus.CounterVec
	journalEntries *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		salesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bizdesk_sales_recorded_total",
			Help: "Sales accepted and applied to the store",
		}),
		salesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizdesk_sales_rejected_total",
				Help: "Sales rejected before touching the store",
			},
			[]string{"reason"},
		),
		payments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizdesk_payments_total",
				Help: "Upgrade payment attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		paywallHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizdesk_paywall_hits_total",
				Help: "Pro-only features requested on the free tier",
			},
			[]string{"feature"},
		),
		journalEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizdesk_journal_entries_total",
				Help: "Store actions handled by the journal writer",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(m.salesRecorded, m.salesRejected, m.payments, m.paywallHits, m.journalEntries)
	return m
}

func (m *Metrics) SaleRecorded() {
	if m == nil {
		return
	}
	m.salesRecorded.Inc()
}

func (m *Metrics) SaleRejected(reason string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Payment(method, outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) PaywallHit(feature string) {
	if m == nil {
		return
	}
	m.paywallHits.WithLabelValues(feature).Inc()
}

func (m *Metrics) JournalEntry(outcome string) {
	if m == nil {
		return
	}
	m.journalEntries.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
