package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/verdantrx/verdantrx/internal/jobs"
	_ "github.com/verdantrx/verdantrx/internal/testing/guard"
)

func TestJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	// Audit writes are small inserts and should stay fast.
	for i := 0; i < 60; i++ {
		tracker := metrics.Track("access:audit")
		time.Sleep(2 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending audit tracker: %v", err)
		}
	}

	// Session purges scan by expiry index; slower but bounded.
	for i := 0; i < 15; i++ {
		tracker := metrics.Track("session:purge")
		time.Sleep(10 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending purge tracker: %v", err)
		}
	}

	// Inject a couple of failures to ensure alerts fire correctly.
	for i := 0; i < 3; i++ {
		tracker := metrics.Track("access:audit")
		time.Sleep(2 * time.Millisecond)
		if err := tracker.End(errors.New("timeout")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "verdantrx_jobs_total", map[string]string{"job": "access:audit", "status": "success"})
	failure := metricValue(t, families, "verdantrx_jobs_total", map[string]string{"job": "access:audit", "status": "failure"})
	if success+failure == 0 {
		t.Fatal("no audit job executions recorded")
	}
	ratio := success / (success + failure)
	if ratio < 0.9 {
		t.Fatalf("audit job success ratio too low: %f", ratio)
	}

	purgeDuration := histogramMean(t, families, "verdantrx_job_duration_seconds", map[string]string{"job": "session:purge"})
	if purgeDuration > 2.0 {
		t.Fatalf("session purge duration above budget: %f", purgeDuration)
	}

	auditDuration := histogramMean(t, families, "verdantrx_job_duration_seconds", map[string]string{"job": "access:audit"})
	if auditDuration > 0.5 {
		t.Fatalf("audit duration above budget: %f", auditDuration)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
