package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := newQueue()

	var got []int
	for i := range 3 {
		if err := q.push(func() { got = append(got, i) }); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	if q.len() != 3 {
		t.Fatalf("expected 3 pending items, got %d", q.len())
	}

	for range 3 {
		job, ok := q.pop()
		if !ok {
			t.Fatal("expected a job")
		}
		job()
	}

	for i, v := range got {
		if v != i {
			t.Errorf("position %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newQueue()
	popped := make(chan struct{})

	go func() {
		if _, ok := q.pop(); ok {
			close(popped)
		}
	}()

	select {
	case <-popped:
		t.Fatal("pop returned before anything was pushed")
	case <-time.After(30 * time.Millisecond):
	}

	_ = q.push(func() {})

	select {
	case <-popped:
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up after push")
	}
}

func TestQueueCloseWakesAllWaiters(t *testing.T) {
	q := newQueue()

	const waiters = 4
	var wg sync.WaitGroup
	var closedSeen atomic.Int32
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := q.pop(); !ok {
				closedSeen.Add(1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters were not released by close")
	}

	if closedSeen.Load() != waiters {
		t.Errorf("expected %d closed signals, got %d", waiters, closedSeen.Load())
	}
}

func TestQueueDrainsBeforeReportingClosed(t *testing.T) {
	q := newQueue()
	_ = q.push(func() {})
	_ = q.push(func() {})
	q.close()

	for i := range 2 {
		if _, ok := q.pop(); !ok {
			t.Fatalf("pop %d: pending job lost after close", i)
		}
	}
	if _, ok := q.pop(); ok {
		t.Error("expected closed signal once drained")
	}
}

func TestQueuePushAfterClose(t *testing.T) {
	q := newQueue()
	q.close()
	q.close() // idempotent

	if err := q.push(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
	if !q.isClosed() {
		t.Error("expected queue to report closed")
	}
}

func TestQueueCompetingConsumers(t *testing.T) {
	q := newQueue()

	const items = 1000
	seen := make([]atomic.Int32, items)
	for i := range items {
		_ = q.push(func() { seen[i].Add(1) })
	}
	q.close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok := q.pop()
				if !ok {
					return
				}
				job()
			}
		}()
	}
	wg.Wait()

	for i := range items {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("item %d delivered %d times", i, n)
		}
	}
}

func TestQueueDrain(t *testing.T) {
	q := newQueue()
	_ = q.push(func() {})
	_ = q.push(func() {})

	if n := q.drain(); n != 2 {
		t.Errorf("expected 2 dropped items, got %d", n)
	}
	if q.len() != 0 {
		t.Errorf("expected empty queue, got %d", q.len())
	}
}
