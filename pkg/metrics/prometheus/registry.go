// Package prometheus provides Prometheus-backed implementations of the metrics
// interfaces declared by other packages.
package prometheus

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/ormkit/pkg/metrics"
	"github.com/marmos91/ormkit/pkg/registry"
)

// registryMetrics is the Prometheus implementation of registry.Metrics.
type registryMetrics struct {
	hits          *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	entries       prometheus.Gauge
}

// NewRegistryMetrics creates handle registry metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called). Call it
// once per process: the collectors are registered on the global registry.
func NewRegistryMetrics() registry.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &registryMetrics{
		hits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ormkit_registry_hits_total",
				Help: "Handle requests answered from the registry without a build",
			},
			[]string{"name"},
		),
		builds: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ormkit_registry_builds_total",
				Help: "Handle builds by outcome",
			},
			[]string{"name", "outcome"}, // "success", "error"
		),
		buildDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ormkit_registry_build_duration_milliseconds",
				Help: "Time spent building a handle in milliseconds",
				Buckets: []float64{
					1,     // in-memory SQLite
					5,     // 5ms
					25,    // 25ms - small file, no migration
					100,   // 100ms
					500,   // 500ms - remote PostgreSQL
					1000,  // 1s
					5000,  // 5s - large migration
					30000, // 30s
				},
			},
			[]string{"name"},
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ormkit_registry_entries",
				Help: "Number of handles held by the registry",
			},
		),
	}
}

func (m *registryMetrics) RecordHit(name string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(name).Inc()
}

func (m *registryMetrics) RecordBuild(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.builds.WithLabelValues(name, outcome).Inc()
	m.buildDuration.WithLabelValues(name).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *registryMetrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

// RegisterDBStats exports connection pool statistics for db under the
// db_name label. It is a no-op when metrics are disabled.
func RegisterDBStats(name string, db *sql.DB) error {
	if !metrics.IsEnabled() {
		return nil
	}
	return metrics.GetRegistry().Register(collectors.NewDBStatsCollector(db, name))
}
