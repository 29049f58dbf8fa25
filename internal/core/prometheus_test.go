package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorderObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "submit_dose", true, 10*time.Millisecond)
	rec.Observe(ctx, "submit_dose", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sawDurations, sawResults bool
	for _, mf := range families {
		switch mf.GetName() {
		case "vetcalc_service_operation_duration_seconds":
			sawDurations = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected one duration series, got %d", len(mf.GetMetric()))
			}
			if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
				t.Fatalf("expected 2 duration samples, got %d", got)
			}
		case "vetcalc_service_operation_results_total":
			sawResults = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected success and error series, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !sawDurations || !sawResults {
		t.Fatalf("expected both metric families, got %v %v", sawDurations, sawResults)
	}
}

func TestPrometheusMetricsRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestServiceWithPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}
	svc := NewService(nil, WithMetrics(rec))
	if _, err := svc.Profiles(context.Background()); err == nil {
		t.Fatalf("expected store-less profiles error")
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected recorded metrics")
	}
}
