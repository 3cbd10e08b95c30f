package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPoolRecordsPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	pool := NewPoolWithConfig(PoolConfig{
		Name:       "metrics",
		NumWorkers: 2,
		Logger:     quietLogger(),
		Metrics:    m,
	})

	if got := testutil.ToFloat64(m.AliveWorkers.WithLabelValues("metrics")); got != 2 {
		t.Errorf("expected 2 alive workers right after construction, got %v", got)
	}

	for range 5 {
		pool.Execute(func() {})
	}
	pool.Execute(func() { panic("boom") })
	pool.Shutdown()
	_ = pool.Submit(func() {})

	if got := testutil.ToFloat64(m.JobsSubmitted.WithLabelValues("metrics")); got != 6 {
		t.Errorf("expected 6 submitted, got %v", got)
	}
	if got := testutil.ToFloat64(m.JobsRejected.WithLabelValues("metrics")); got != 1 {
		t.Errorf("expected 1 rejected, got %v", got)
	}
	if got := testutil.ToFloat64(m.JobsCompleted.WithLabelValues("metrics", "success")); got != 5 {
		t.Errorf("expected 5 successful jobs, got %v", got)
	}
	if got := testutil.ToFloat64(m.JobsCompleted.WithLabelValues("metrics", "panicked")); got != 1 {
		t.Errorf("expected 1 panicked job, got %v", got)
	}
	if got := testutil.ToFloat64(m.WorkerCount.WithLabelValues("metrics")); got != 2 {
		t.Errorf("expected worker count 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.AliveWorkers.WithLabelValues("metrics")); got != 0 {
		t.Errorf("expected 0 alive workers after shutdown, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActiveWorkers.WithLabelValues("metrics")); got != 0 {
		t.Errorf("expected 0 active workers after shutdown, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueueDepth.WithLabelValues("metrics")); got != 0 {
		t.Errorf("expected empty queue after shutdown, got %v", got)
	}

	if n := testutil.CollectAndCount(m.JobDuration); n != 1 {
		t.Errorf("expected one duration series, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.recordSubmitted("x")
	m.recordRejected("x")
	m.observeJob("x", 0, true)
	m.setQueueDepth("x", 1)
	m.setActiveWorkers("x", 1)
	m.setAliveWorkers("x", 1)
	m.setWorkerCount("x", 1)
}

func TestNewMetricsUnregistered(t *testing.T) {
	// nil レジストリでも作成できる
	m := NewMetrics(nil)
	m.recordSubmitted("x")
	if got := testutil.ToFloat64(m.JobsSubmitted.WithLabelValues("x")); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}
