// Package events provides a small pub/sub bus for worker pool lifecycle notifications.
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventWorkerStarted is emitted when a worker goroutine begins its receive loop
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerStopped is emitted when a worker exits after the queue was closed and drained
	EventWorkerStopped EventType = "worker_stopped"
	// EventJobPanicked is emitted when a job panics and the panic is recovered
	EventJobPanicked EventType = "job_panicked"
	// EventWorkerRetired is emitted when a worker exits because of a panicking job
	EventWorkerRetired EventType = "worker_retired"
	// EventPoolShutdown is emitted once every worker of a pool has been joined
	EventPoolShutdown EventType = "pool_shutdown"
)

// Event represents a pool lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Pool      string    `json:"pool"`
	WorkerID  int       `json:"worker_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Panic   string `json:"panic,omitempty"`
	Workers int    `json:"workers,omitempty"`
	Dropped int    `json:"dropped,omitempty"`
}

// NewWorkerStartedEvent creates a worker started event
func NewWorkerStartedEvent(pool string, workerID int) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
	}
}

// NewWorkerStoppedEvent creates a worker stopped event
func NewWorkerStoppedEvent(pool string, workerID int) Event {
	return Event{
		Type:      EventWorkerStopped,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
	}
}

// NewJobPanickedEvent creates a job panicked event carrying the recovered value
func NewJobPanickedEvent(pool string, workerID int, recovered any) Event {
	return Event{
		Type:      EventJobPanicked,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
		Data: EventData{
			Panic: fmt.Sprint(recovered),
		},
	}
}

// NewWorkerRetiredEvent creates a worker retired event
func NewWorkerRetiredEvent(pool string, workerID int) Event {
	return Event{
		Type:      EventWorkerRetired,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
	}
}

// NewPoolShutdownEvent creates a pool shutdown event.
// WorkerID is -1 because the event concerns the whole pool.
func NewPoolShutdownEvent(pool string, workers, dropped int) Event {
	return Event{
		Type:      EventPoolShutdown,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  -1,
		Data: EventData{
			Workers: workers,
			Dropped: dropped,
		},
	}
}
