package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StepRetrieval   = "retrieval"
	StepPersistence = "persistence"
	StepEmission    = "emission"
)

const (
	EmissionResultDelivered = "delivered"
	EmissionResultQueued    = "queued"
	EmissionResultFailed    = "failed"
)

// Metrics captures reconciliation health signals.
type Metrics struct {
	registry          *prometheus.Registry
	outcomes          *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	stepTimeouts      *prometheus.CounterVec
	emissions         *prometheus.CounterVec
	deadLetters       *prometheus.CounterVec
	invoicedTotal     prometheus.Counter
}

// NewMetrics registers the service collectors on a dedicated registry.
func NewMetrics(cfg *config.Configuration) *Metrics {
	return newMetrics(prometheus.NewRegistry(), cfg.Metrics.Namespace)
}

// NewNoopMetrics returns metrics bound to a throwaway registry, for tests.
func NewNoopMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry(), "")
}

func newMetrics(registry *prometheus.Registry, namespace string) *Metrics {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "debitsync"
	}

	m := &Metrics{
		registry: registry,
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_outcomes_total",
			Help:      "Reconciliation attempts by outcome.",
		}, []string{"outcome"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of reconciliation attempts.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		stepTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_step_timeouts_total",
			Help:      "Reconciliation steps that hit their deadline.",
		}, []string{"step"}),
		emissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_emissions_total",
			Help:      "Invoice item emissions by mode and result.",
		}, []string{"mode", "result"}),
		deadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_letters_total",
			Help:      "Entries written to the dead-letter store.",
		}, []string{"kind"}),
		invoicedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoiced_amount_total",
			Help:      "Sum of reconciled totals in major currency units.",
		}),
	}

	registry.MustRegister(
		m.outcomes,
		m.reconcileDuration,
		m.stepTimeouts,
		m.emissions,
		m.deadLetters,
		m.invoicedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOutcome(kind types.ReconciliationOutcomeKind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(kind)).Inc()
	m.reconcileDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) IncStepTimeout(step string) {
	if m == nil {
		return
	}
	m.stepTimeouts.WithLabelValues(step).Inc()
}

func (m *Metrics) IncEmission(mode types.EmissionMode, result string) {
	if m == nil {
		return
	}
	m.emissions.WithLabelValues(string(mode), result).Inc()
}

func (m *Metrics) IncDeadLetter(kind types.DeadLetterKind) {
	if m == nil {
		return
	}
	m.deadLetters.WithLabelValues(string(kind)).Inc()
}

// AddInvoiced adds a reconciled total. Negative values are ignored.
func (m *Metrics) AddInvoiced(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.invoicedTotal.Add(amount)
}

// Registry exposes the underlying registry for tests and custom handlers
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
