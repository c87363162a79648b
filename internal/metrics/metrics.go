// Package metrics records Prometheus metrics for ensemble runs and exports them
// in the text exposition format for node_exporter's textfile collector.
package metrics

import (
	"errors"
	"time"

	"github.com/huangsam/ratingfit/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the metrics of one process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Run outcome
	runsTotal     *prometheus.CounterVec
	rowsScored    prometheus.Counter
	runDuration   prometheus.Gauge
	lastRunUnix   prometheus.Gauge
	groupCount    prometheus.Gauge
	joinMismatch  prometheus.Counter
	canonicalPick prometheus.Counter

	// Quality
	accuracy  prometheus.Gauge
	withinOne prometheus.Gauge
	mae       prometheus.Gauge
	rmse      prometheus.Gauge
	pearson   prometheus.Gauge

	// Training
	trainDuration   prometheus.Histogram
	trainIterations prometheus.Histogram
	unconverged     prometheus.Counter
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry a fresh
// registry is used so that Go runtime metrics stay out of the exported file.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ratingfit",
		subsystem:        "ensemble",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.enabled {
		m.initializeMetrics()
	}
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.runsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "runs_total",
		Help: "Number of ensemble runs by outcome",
	}, []string{"status"})
	m.rowsScored = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "rows_scored_total",
		Help: "Number of players given an approximate rating",
	})
	m.runDuration = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "last_run_duration_seconds",
		Help: "Wall time of the last successful run",
	})
	m.lastRunUnix = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "last_run_timestamp_seconds",
		Help: "Unix time the last successful run finished",
	})
	m.groupCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "groups",
		Help: "Number of groups in the last run",
	})
	m.joinMismatch = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "join_mismatches_total",
		Help: "Stats rows dropped because no rating matched",
	})
	m.canonicalPick = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "join_canonical_picks_total",
		Help: "Players resolved through the canonical rating version",
	})

	m.accuracy = m.qualityGauge(factory, labels, "accuracy", "Share of exact approximate ratings")
	m.withinOne = m.qualityGauge(factory, labels, "within_one_rate", "Share of approximate ratings within one point")
	m.mae = m.qualityGauge(factory, labels, "mean_absolute_error", "Mean absolute rating error")
	m.rmse = m.qualityGauge(factory, labels, "root_mean_squared_error", "Root mean squared rating error")
	m.pearson = m.qualityGauge(factory, labels, "pearson", "Correlation between true and approximate ratings")

	m.trainDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "group_train_duration_seconds",
		Help:    "Time spent fitting one group model",
		Buckets: m.histogramBuckets,
	})
	m.trainIterations = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "group_train_iterations",
		Help:    "Solver epochs used to fit one group model",
		Buckets: prometheus.ExponentialBuckets(10, 4, 7),
	})
	m.unconverged = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "group_unconverged_total",
		Help: "Group models that hit the iteration limit",
	})
}

func (m *Manager) qualityGauge(factory promauto.Factory, labels prometheus.Labels, name, help string) prometheus.Gauge {
	return factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: name,
		Help: help,
	})
}

// Enabled reports whether metrics are collected.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Registry returns the registry the metrics are registered with.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a successful run.
func (m *Manager) ObserveRun(report schema.RunReport, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.runsTotal.WithLabelValues("success").Inc()
	m.rowsScored.Add(float64(len(report.Table.Rows)))
	m.runDuration.Set(duration.Seconds())
	m.lastRunUnix.SetToCurrentTime()
	m.groupCount.Set(float64(len(report.Groups)))
	m.joinMismatch.Add(float64(len(report.Join.Mismatches)))
	m.canonicalPick.Add(float64(report.Join.CanonicalPicks))

	ev := report.Evaluation
	m.accuracy.Set(ev.Accuracy)
	m.withinOne.Set(ev.WithinOneRate)
	m.mae.Set(ev.MAE)
	m.rmse.Set(ev.RMSE)
	m.pearson.Set(ev.Pearson)

	for _, g := range report.Groups {
		m.trainDuration.Observe(g.Duration.Seconds())
		m.trainIterations.Observe(float64(g.Iterations))
		if !g.Converged {
			m.unconverged.Inc()
		}
	}
}

// ObserveFailure records a failed run under the kind of its error.
func (m *Manager) ObserveFailure(err error) {
	if !m.enabled || err == nil {
		return
	}
	status := "error"
	if kind := schema.KindOf(err); kind != "" {
		status = string(kind)
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *Manager) WriteTextfile(path string) error {
	if !m.enabled {
		return errors.New("metrics are disabled")
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
