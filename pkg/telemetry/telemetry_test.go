package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/steemit/hnspool/pkg/config"
)

func TestInitDisabled(t *testing.T) {
	stop, err := Init(&config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	stop()

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()
	if ctx == nil {
		t.Error("StartSpan() returned nil context")
	}
}

func TestInitPrometheus(t *testing.T) {
	stop, err := Init(&config.TelemetryConfig{Enabled: true, PrometheusEnabled: true, ServiceName: "hnspool-test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer stop()

	counter, err := Meter().Int64Counter("hnspool.test.events")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(context.Background(), 3)

	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hnspool_test_events") {
		t.Error("counter missing from /metrics output")
	}
}
