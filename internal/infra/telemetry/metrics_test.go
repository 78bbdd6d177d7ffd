package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuthMetricsRecordsOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewAuthMetrics(registry)
	if err != nil {
		t.Fatalf("NewAuthMetrics returned error: %v", err)
	}

	metrics.ObserveLogin("success")
	metrics.ObserveLogin("success")
	metrics.ObserveRefresh("middleware", "reuse_detected")
	metrics.ObserveAuthentication("expired")
	metrics.ObservePasswordHash("verify", 20*time.Millisecond)

	if got := testutil.ToFloat64(metrics.Logins.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 logins, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Refreshes.WithLabelValues("middleware", "reuse_detected")); got != 1 {
		t.Fatalf("expected 1 reuse, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Authentications.WithLabelValues("expired")); got != 1 {
		t.Fatalf("expected 1 expired authentication, got %f", got)
	}
	if samples := testutil.CollectAndCount(metrics.HashDuration); samples == 0 {
		t.Fatal("expected hash histogram to have samples")
	}
}

func TestNewAuthMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewAuthMetrics(registry)
	if err != nil {
		t.Fatalf("first NewAuthMetrics returned error: %v", err)
	}
	second, err := NewAuthMetrics(registry)
	if err != nil {
		t.Fatalf("second NewAuthMetrics returned error: %v", err)
	}
	if first.Logins != second.Logins {
		t.Fatal("expected collectors to be reused")
	}
}

func TestNilAuthMetricsIsSafe(t *testing.T) {
	var metrics *AuthMetrics
	metrics.ObserveLogin("success")
	metrics.ObserveRefresh("login", "success")
	metrics.ObserveAuthentication("success")
	metrics.ObservePasswordHash("hash", time.Millisecond)
}
