// Package api serves the admin HTTP surface of hello-pool.
//
// Routes:
//
//	GET /health        liveness probe, returns "ok"
//	GET /api/status    worker pool Stats plus the listener's request metrics
//	GET /api/metrics   listener request metrics only
//	GET /metrics       Prometheus exposition
//	    /ws            WebSocket stream of status frames and pool events
//
// Status frames are pushed every BroadcastInterval while at least one
// WebSocket client is connected; pool events are forwarded as they are
// published on the event bus.
//
// The broadcast loop also closes the request metrics window on every tick:
// window_rps and p99_latency_ms cover the current interval, while the
// request and route totals are cumulative.
package api
