// Package metrics exposes Prometheus collectors for signal evaluation and the
// market-data gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on its own registry so that tests and
// multiple engines never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	Evaluations       *prometheus.CounterVec // labels: signal
	IndicatorSignals  *prometheus.CounterVec // labels: indicator, signal
	GeneratorFailures *prometheus.CounterVec // labels: indicator
	EvaluationSeconds prometheus.Histogram
	SourceRequests    *prometheus.CounterVec // labels: source, outcome
	CacheLookups      *prometheus.CounterVec // labels: outcome
	BacktestJobs      *prometheus.CounterVec // labels: status
}

// New registers and returns all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_evaluations_total",
			Help: "Convergence evaluations by resulting signal",
		}, []string{"signal"}),
		IndicatorSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_indicator_signals_total",
			Help: "Generator outputs by indicator and side",
		}, []string{"indicator", "signal"}),
		GeneratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_generator_failures_total",
			Help: "Generator evaluations that panicked",
		}, []string{"indicator"}),
		EvaluationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalhub_evaluation_seconds",
			Help:    "Wall time of one convergence evaluation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_source_requests_total",
			Help: "Candle source requests by outcome",
		}, []string{"source", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}),
		BacktestJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_backtest_jobs_total",
			Help: "Finished backtest jobs by status",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.Evaluations,
		m.IndicatorSignals,
		m.GeneratorFailures,
		m.EvaluationSeconds,
		m.SourceRequests,
		m.CacheLookups,
		m.BacktestJobs,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvaluation records one finished evaluation. A nil receiver is a no-op.
func (m *Metrics) ObserveEvaluation(signal string, took time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(signal).Inc()
	m.EvaluationSeconds.Observe(took.Seconds())
}

func (m *Metrics) ObserveIndicator(indicator, signal string) {
	if m == nil {
		return
	}
	m.IndicatorSignals.WithLabelValues(indicator, signal).Inc()
}

func (m *Metrics) ObserveFailure(indicator string) {
	if m == nil {
		return
	}
	m.GeneratorFailures.WithLabelValues(indicator).Inc()
}

func (m *Metrics) ObserveSource(source string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SourceRequests.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBacktest(status string) {
	if m == nil {
		return
	}
	m.BacktestJobs.WithLabelValues(status).Inc()
}
