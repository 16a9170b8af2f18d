package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// tower alert engine.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
	EngineRunning prometheus.Gauge

	// Per-tower evaluation metrics.
	TowersEvaluated  *prometheus.CounterVec // labels: level={green,yellow,red}
	TowerFailures    *prometheus.CounterVec // labels: code={unknown_threat_level,invalid_attribute}
	InsufficientData prometheus.Counter
	AlertLevelTowers *prometheus.GaugeVec // labels: level; towers at each level after the latest cycle

	// Precipitation source metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram
	SampleCache   *prometheus.CounterVec // labels: result={hit,miss,expired}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tower_alert",
			Name:      "cycles_total",
			Help:      "Total evaluation cycles completed.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tower_alert",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full evaluation cycle across all towers.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tower_alert",
			Name:      "engine_running",
			Help:      "1 when the engine loop is active, 0 when shut down.",
		}),
		TowersEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tower_alert",
			Name:      "towers_evaluated_total",
			Help:      "Towers successfully classified, by final alert level.",
		}, []string{"level"}),
		TowerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tower_alert",
			Name:      "tower_failures_total",
			Help:      "Per-tower evaluation failures, by error code.",
		}, []string{"code"}),
		InsufficientData: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tower_alert",
			Name:      "insufficient_data_total",
			Help:      "Evaluations that proceeded with 0 mm due to missing precipitation data.",
		}),
		AlertLevelTowers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tower_alert",
			Name:      "alert_level_towers",
			Help:      "Towers at each alert level after the most recent cycle.",
		}, []string{"level"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tower_alert",
			Name:      "precipitation_fetch_total",
			Help:      "Precipitation source requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tower_alert",
			Name:      "precipitation_fetch_duration_seconds",
			Help:      "Precipitation API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SampleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tower_alert",
			Name:      "sample_cache_total",
			Help:      "Precipitation cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.EngineRunning,
		m.TowersEvaluated,
		m.TowerFailures,
		m.InsufficientData,
		m.AlertLevelTowers,
		m.FetchRequests,
		m.FetchDuration,
		m.SampleCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with no registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tower_alert", Name: "cycles_total"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tower_alert", Name: "cycle_duration_seconds"}),
		EngineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tower_alert", Name: "engine_running"}),
		TowersEvaluated:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tower_alert", Name: "towers_evaluated_total"}, []string{"level"}),
		TowerFailures:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tower_alert", Name: "tower_failures_total"}, []string{"code"}),
		InsufficientData: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tower_alert", Name: "insufficient_data_total"}),
		AlertLevelTowers: prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "tower_alert", Name: "alert_level_towers"}, []string{"level"}),
		FetchRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tower_alert", Name: "precipitation_fetch_total"}, []string{"outcome"}),
		FetchDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tower_alert", Name: "precipitation_fetch_duration_seconds"}),
		SampleCache:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tower_alert", Name: "sample_cache_total"}, []string{"result"}),
	}
}
