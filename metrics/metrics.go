// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jupark12/fiado/models"
)

type Metrics struct {
	registry *prometheus.Registry

	TransactionsRecorded *prometheus.CounterVec
	AmountRecorded       *prometheus.CounterVec
	SubmitFailures       prometheus.Counter
	ImportJobs           *prometheus.CounterVec
	OpenSessions         prometheus.Gauge
	PortalSubscribers    prometheus.Gauge
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TransactionsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiado",
			Name:      "transactions_recorded_total",
			Help:      "Ledger rows written, by type.",
		}, []string{"type"}),
		AmountRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiado",
			Name:      "amount_recorded_total",
			Help:      "Sum of the amounts written, by type.",
		}, []string{"type"}),
		SubmitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fiado",
			Name:      "submit_failures_total",
			Help:      "Entry submissions the store rejected.",
		}),
		ImportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiado",
			Name:      "import_jobs_total",
			Help:      "Statement import jobs, by final status.",
		}, []string{"status"}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fiado",
			Name:      "entry_sessions_open",
			Help:      "Entry sessions currently open.",
		}),
		PortalSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fiado",
			Name:      "portal_subscribers",
			Help:      "Open portal websocket connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TransactionsRecorded,
		m.AmountRecorded,
		m.SubmitFailures,
		m.ImportJobs,
		m.OpenSessions,
		m.PortalSubscribers,
	)
	return m
}

// ObserveRows counts rows that were written to the store
func (m *Metrics) ObserveRows(rows []models.Transaction) {
	for _, row := range rows {
		m.TransactionsRecorded.WithLabelValues(string(row.Type)).Inc()
		m.AmountRecorded.WithLabelValues(string(row.Type)).Add(row.Amount.InexactFloat64())
	}
}

func (m *Metrics) ObserveImport(status models.JobStatus) {
	m.ImportJobs.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
