package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	if err := (<-ch).Write(m); err != nil {
		t.Fatal(err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Histogram.GetSampleSum()
}

func TestObserveArtifactIncrementsCountersAndHistogram(t *testing.T) {
	m := New(nil)
	m.ObserveArtifact("pytorch", "CRITICAL", 10*time.Millisecond)

	if got := counterValue(t, m.ArtifactsScanned.WithLabelValues("pytorch", "CRITICAL")); got != 1 {
		t.Errorf("got artifacts_total %v, want 1", got)
	}
	if got := counterValue(t, m.ScanDuration.WithLabelValues("pytorch")); got <= 0 {
		t.Errorf("got duration sum %v, want > 0", got)
	}
}

func TestObserveThreatIncrementsByKind(t *testing.T) {
	m := New(nil)
	m.ObserveThreat("RCE")
	m.ObserveThreat("RCE")

	if got := counterValue(t, m.ThreatsFound.WithLabelValues("RCE")); got != 2 {
		t.Errorf("got threats_total %v, want 2", got)
	}
}

func TestObserveScanError(t *testing.T) {
	m := New(nil)
	m.ObserveScanError()

	if got := counterValue(t, m.ScanErrors); got != 1 {
		t.Errorf("got errors_total %v, want 1", got)
	}
}

func TestNewWithRealRegistererRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family")
	}
}
