package ghola

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics collection for repository operations.
type Metrics struct {
	filterInjections  *prometheus.CounterVec
	softDeletedRows   *prometheus.CounterVec
	softRestoredRows  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Prometheus metrics collector.
// If registry is nil, uses the default Prometheus registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		filterInjections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repository_softdelete_filter_injections_total",
				Help: "Total number of read queries that received the deleted-row exclusion predicate",
			},
			[]string{"entity"},
		),

		softDeletedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repository_soft_deleted_rows_total",
				Help: "Total number of rows marked deleted",
			},
			[]string{"entity"},
		),

		softRestoredRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repository_soft_restored_rows_total",
				Help: "Total number of rows restored from soft deletion",
			},
			[]string{"entity"},
		),

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "repository_operation_duration_seconds",
				Help: "Repository operation duration in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
				},
			},
			[]string{"operation", "entity"},
		),
	}
}

// RecordFilterInjection records one read query that was rewritten
func (m *Metrics) RecordFilterInjection(entity string) {
	m.filterInjections.WithLabelValues(entity).Inc()
}

// RecordSoftDeletedRows records rows marked deleted
func (m *Metrics) RecordSoftDeletedRows(entity string, count int64) {
	m.softDeletedRows.WithLabelValues(entity).Add(float64(count))
}

// RecordSoftRestoredRows records rows restored from deletion
func (m *Metrics) RecordSoftRestoredRows(entity string, count int64) {
	m.softRestoredRows.WithLabelValues(entity).Add(float64(count))
}

// RecordOperationDuration records the duration of a repository operation
func (m *Metrics) RecordOperationDuration(operation, entity string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
}
