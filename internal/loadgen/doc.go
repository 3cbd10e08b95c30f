// Package loadgen drives a hello-pool listener with concurrent raw TCP
// requests and collects latency and outcome metrics.
//
// Requests are executed on a worker.Pool of Concurrency workers; the
// generator never has more than Concurrency requests queued or in flight.
//
//	c := loadgen.New(loadgen.DefaultConfig("127.0.0.1:7878"))
//	snap := c.RunRequests(ctx, 1000)
//	fmt.Println(snap.TotalRequests, snap.P99Latency)
package loadgen
