package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	m.CacheHit("rest")
	m.CacheHit("rest")
	m.CacheMiss("rest")
	m.Executed("memory", "count")

	if got := testutil.ToFloat64(m.cacheHits.WithLabelValues("rest")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses.WithLabelValues("rest")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.executions.WithLabelValues("memory", "count")); got != 1 {
		t.Errorf("executions = %v, want 1", got)
	}

	m.ObserveRemote(200, 10*time.Millisecond)
	m.ObserveRemote(0, time.Millisecond)
	if got := testutil.CollectAndCount(m.remoteDuration); got != 2 {
		t.Errorf("remote duration series = %d, want 2", got)
	}
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if _, err := New(reg); err == nil {
		t.Error("New() on same registry succeeded, want error")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.CacheHit("x")
	m.CacheMiss("x")
	m.Executed("x", "select")
	m.ObserveRemote(500, time.Second)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{0: "error", 200: "2xx", 404: "4xx", 503: "5xx"}
	for status, want := range tests {
		if got := StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", status, got, want)
		}
	}
}
