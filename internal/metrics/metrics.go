package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	analyses       *prometheus.CounterVec
	credentialOps  *prometheus.CounterVec
	analysisTiming prometheus.Histogram
}

// New registers collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bias_analyzer",
			Name:      "analyses_total",
			Help:      "Bias analyses by outcome (ok, cached or error kind).",
		}, []string{"outcome"}),
		credentialOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bias_analyzer",
			Name:      "credential_operations_total",
			Help:      "Credential operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		analysisTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bias_analyzer",
			Name:      "analysis_duration_seconds",
			Help:      "Latency of uncached analyses including the model call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.analyses, m.credentialOps, m.analysisTiming)
	return m
}

// Analysis counts one analysis outcome
func (m *Metrics) Analysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

// AnalysisSeconds observes the duration of an uncached analysis
func (m *Metrics) AnalysisSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.analysisTiming.Observe(seconds)
}

// CredentialOp counts one credential operation outcome
func (m *Metrics) CredentialOp(op, outcome string) {
	if m == nil {
		return
	}
	m.credentialOps.WithLabelValues(op, outcome).Inc()
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
