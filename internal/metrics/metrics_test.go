package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := New()

	if m.TotalRequests() != 0 {
		t.Errorf("expected 0 total requests, got %d", m.TotalRequests())
	}
	if m.SuccessRequests() != 0 {
		t.Errorf("expected 0 success requests, got %d", m.SuccessRequests())
	}
}

func TestMetricsRecordRouteSuccess(t *testing.T) {
	m := New()

	m.RecordRoute("/", 10 * time.Millisecond, true)
	m.RecordRoute("/", 20 * time.Millisecond, true)
	m.RecordRoute("/", 30 * time.Millisecond, true)

	if m.TotalRequests() != 3 {
		t.Errorf("expected 3 total requests, got %d", m.TotalRequests())
	}
	if m.SuccessRequests() != 3 {
		t.Errorf("expected 3 success requests, got %d", m.SuccessRequests())
	}
	if m.FailedRequests() != 0 {
		t.Errorf("expected 0 failed requests, got %d", m.FailedRequests())
	}
}

func TestMetricsRecordRouteFailure(t *testing.T) {
	m := New()

	m.RecordRoute("/", 10 * time.Millisecond, false)
	m.RecordRoute("/", 20 * time.Millisecond, true)

	if m.TotalRequests() != 2 {
		t.Errorf("expected 2 total requests, got %d", m.TotalRequests())
	}
	if m.FailedRequests() != 1 {
		t.Errorf("expected 1 failed request, got %d", m.FailedRequests())
	}
}

func TestMetricsAverageLatency(t *testing.T) {
	m := New()

	m.RecordRoute("/", 10 * time.Millisecond, true)
	m.RecordRoute("/", 20 * time.Millisecond, true)
	m.RecordRoute("/", 30 * time.Millisecond, true)

	avg := m.AverageLatency()
	expected := 20 * time.Millisecond

	if avg != expected {
		t.Errorf("expected average latency %v, got %v", expected, avg)
	}
}

func TestMetricsErrorRate(t *testing.T) {
	m := New()

	m.RecordRoute("/", 10 * time.Millisecond, true)
	m.RecordRoute("/", 10 * time.Millisecond, false)

	rate := m.ErrorRate()
	if rate != 0.5 {
		t.Errorf("expected error rate 0.5, got %f", rate)
	}
}

func TestMetricsP99Latency(t *testing.T) {
	m := New()

	for i := 1; i <= 100; i++ {
		m.RecordRoute("/", time.Duration(i) * time.Millisecond, true)
	}

	p99 := m.P99Latency()
	// P99 should be around 99ms or 100ms
	if p99 < 99*time.Millisecond || p99 > 100*time.Millisecond {
		t.Errorf("expected P99 around 99-100ms, got %v", p99)
	}
}

func TestMetricsReset(t *testing.T) {
	m := New()

	m.RecordRoute("/", 10 * time.Millisecond, true)
	m.RecordRoute("/", 20 * time.Millisecond, true)

	m.Reset()

	// Window metrics should be reset
	if m.RPS() != 0 {
		t.Errorf("expected RPS 0 after reset, got %f", m.RPS())
	}

	if m.P99Latency() != 0 {
		t.Errorf("expected no latency samples after reset, got %v", m.P99Latency())
	}

	// But total should remain
	if m.TotalRequests() != 2 {
		t.Errorf("expected total 2 after reset, got %d", m.TotalRequests())
	}
	if m.RouteCounts()["/"] != 2 {
		t.Errorf("expected route counts to survive reset, got %v", m.RouteCounts())
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.RecordRoute("/", time.Millisecond, true)
			}
		}()
	}

	wg.Wait()

	if m.TotalRequests() != 10000 {
		t.Errorf("expected 10000 requests, got %d", m.TotalRequests())
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := New()

	m.RecordRoute("/", 10 * time.Millisecond, true)
	m.RecordRoute("/", 20 * time.Millisecond, false)

	snap := m.Snapshot()

	if snap.TotalRequests != 2 {
		t.Errorf("expected 2 total, got %d", snap.TotalRequests)
	}
	if snap.SuccessRequests != 1 {
		t.Errorf("expected 1 success, got %d", snap.SuccessRequests)
	}
	if snap.FailedRequests != 1 {
		t.Errorf("expected 1 failed, got %d", snap.FailedRequests)
	}
}

func TestMetricsRecordRoute(t *testing.T) {
	m := New()

	m.RecordRoute("/", 5*time.Millisecond, true)
	m.RecordRoute("/", 5*time.Millisecond, true)
	m.RecordRoute("/sleep", 50*time.Millisecond, true)
	m.RecordRoute("not_found", time.Millisecond, false)

	routes := m.RouteCounts()
	if routes["/"] != 2 || routes["/sleep"] != 1 || routes["not_found"] != 1 {
		t.Errorf("unexpected route counts: %v", routes)
	}
	if m.FailedRequests() != 1 {
		t.Errorf("expected 1 failed request, got %d", m.FailedRequests())
	}

	// コピーを返すので呼び出し側の変更は影響しない
	routes["/"] = 100
	if m.RouteCounts()["/"] != 2 {
		t.Error("RouteCounts should return a copy")
	}

	snap := m.Snapshot()
	if snap.Routes["/sleep"] != 1 {
		t.Errorf("expected /sleep in snapshot, got %v", snap.Routes)
	}
}

func TestMetricsMaxLatencySamples(t *testing.T) {
	m := NewWithConfig(Config{MaxLatencySamples: 10})

	for i := 1; i <= 100; i++ {
		m.RecordRoute("/", time.Duration(i) * time.Millisecond, true)
	}

	// 最初の 10 件だけがサンプルとして残る
	if p99 := m.P99Latency(); p99 != 10*time.Millisecond {
		t.Errorf("expected P99 from first 10 samples (10ms), got %v", p99)
	}
	if m.TotalRequests() != 100 {
		t.Errorf("expected 100 requests, got %d", m.TotalRequests())
	}
}
