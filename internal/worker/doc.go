// Package worker provides a fixed-size goroutine pool that runs fire-and-forget jobs.
//
// A Pool owns N long-lived worker goroutines that compete for jobs on one
// shared, unbounded FIFO queue. Every accepted job runs exactly once on
// exactly one worker. A worker never runs two jobs at the same time.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // panics if size < 1
//	defer pool.Shutdown()
//
//	for i := 0; i < 100; i++ {
//	    pool.Execute(func() {
//	        // do work
//	    })
//	}
//
// Execute never blocks and returns nothing: there is no result channel.
// Jobs that need to report back close over their own sink.
//
// # Shutdown
//
// Shutdown first closes the queue, so later submissions fail, and then
// joins every worker in index order. Workers keep draining the queue until
// it is empty, so Shutdown returns only after every queued and in-flight
// job has finished. A job that never returns keeps Shutdown waiting.
//
// Execute after Shutdown is a lifecycle bug and panics with ErrPoolClosed.
// Submit reports the same condition as an error for callers that may race
// shutdown.
//
// # Panicking Jobs
//
// FaultPolicy decides what a worker does after a job panics:
//
//   - FaultRecover (default): the panic is recovered and logged, the worker
//     keeps serving.
//   - FaultRetire: the panic is recovered and logged, then the worker exits
//     for good. The pool does not replace it, so capacity shrinks by one.
//
// # Configuration
//
//	pool := worker.NewPoolWithConfig(worker.PoolConfig{
//	    Name:        "http",
//	    NumWorkers:  8,
//	    FaultPolicy: worker.FaultRetire,
//	    Metrics:     worker.NewMetrics(prometheus.DefaultRegisterer),
//	    Events:      bus,
//	})
package worker
