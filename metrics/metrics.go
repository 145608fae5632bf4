// Package metrics exposes Prometheus counters and histograms for scan
// activity, grounded on the teacher's per-package metrics pattern
// (datastore/postgres/store_metrics.go) but using an injected
// Registerer instead of the default global one, so a caller embedding
// this engine in a larger service can scope these metrics under its own
// registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a bundle of scan-activity collectors. The zero value is not
// usable; construct one with New.
type Metrics struct {
	ArtifactsScanned *prometheus.CounterVec
	ThreatsFound     *prometheus.CounterVec
	ScanDuration     *prometheus.HistogramVec
	ScanErrors       prometheus.Counter
}

// New returns a Metrics bundle, registering each collector against reg.
// A nil reg (promauto.With's documented behavior) yields unregistered
// collectors, useful for tests that want to inspect values without a
// live registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ArtifactsScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aisbom",
			Subsystem: "scan",
			Name:      "artifacts_total",
			Help:      "Artifacts inspected, by framework and risk level.",
		}, []string{"framework", "risk"}),
		ThreatsFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aisbom",
			Subsystem: "scan",
			Name:      "threats_total",
			Help:      "Threats identified by the safety scanner, by kind.",
		}, []string{"kind"}),
		ScanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aisbom",
			Subsystem: "scan",
			Name:      "artifact_duration_seconds",
			Help:      "Per-artifact inspection duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"framework"}),
		ScanErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aisbom",
			Subsystem: "scan",
			Name:      "errors_total",
			Help:      "Peripheral per-scan failures (e.g. unparsable manifests).",
		}),
	}
}

// ObserveArtifact records one inspected artifact's framework, bare risk
// level, and inspection duration.
func (m *Metrics) ObserveArtifact(framework, risk string, d time.Duration) {
	m.ArtifactsScanned.WithLabelValues(framework, risk).Inc()
	m.ScanDuration.WithLabelValues(framework).Observe(d.Seconds())
}

// ObserveThreat records one resolved threat by kind.
func (m *Metrics) ObserveThreat(kind string) {
	m.ThreatsFound.WithLabelValues(kind).Inc()
}

// ObserveScanError increments the peripheral scan-error counter.
func (m *Metrics) ObserveScanError() {
	m.ScanErrors.Inc()
}
