// Package metrics provides in-process request metrics for the listener and
// the load generator.
//
// Metrics collects request counts, success/failure rates, throughput (RPS),
// average and P99 latency, and a per-route request breakdown.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... serve a request ...
//	m.RecordRoute("/sleep", time.Since(start), true)
//
//	snap := m.Snapshot()
//	fmt.Printf("Total: %d, RPS: %.2f, P99: %v\n",
//	    snap.TotalRequests, snap.RPS, snap.P99Latency)
//
// # Configuration
//
//	m := metrics.NewWithConfig(metrics.Config{
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	})
//
// # Thread Safety
//
// Counters are atomic; samples and route counts are guarded by a RWMutex.
// All operations are safe for concurrent use.
package metrics
