package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "remap"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	executions    *prometheus.CounterVec
	skippedFields *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	ruleSets      prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "executions_total",
				Help:      "Mapping executions by rule set code and outcome",
			},
			[]string{"code", "outcome"},
		),
		skippedFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "skipped_fields_total",
				Help:      "Fields left unmapped by rule set code",
			},
			[]string{"code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "execution_seconds",
				Help:      "Mapping execution latency",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"code"},
		),
		ruleSets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rule_sets",
			Help:      "Rule sets currently registered",
		}),
	}
	m.registry.MustRegister(
		m.executions,
		m.skippedFields,
		m.duration,
		m.ruleSets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observeExecution(code, outcome string, seconds float64, skipped int) {
	m.executions.WithLabelValues(code, outcome).Inc()
	if outcome != "ok" {
		return
	}
	m.duration.WithLabelValues(code).Observe(seconds)
	if skipped > 0 {
		m.skippedFields.WithLabelValues(code).Add(float64(skipped))
	}
}

// SetRuleSets records the size of the registry.
func (m *Metrics) SetRuleSets(n int) {
	m.ruleSets.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
