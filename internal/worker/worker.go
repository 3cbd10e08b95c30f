package worker

import (
	"fmt"
	"time"
)

// Worker はプールが所有する一つのゴルーチン
// 共有キューからジョブを受け取り、キューが閉じられて空になるまで実行し続ける
type Worker struct {
	id    int
	tag   string
	pool  *Pool
	queue *queue
	done  chan struct{}
}

// newWorker はワーカーを作成し、すぐにゴルーチンを起動する
func newWorker(id int, p *Pool) *Worker {
	w := &Worker{
		id:    id,
		tag:   fmt.Sprintf("worker-%d", id),
		pool:  p,
		queue: p.queue,
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// ID はワーカーの番号（0..N-1）を返す
func (w *Worker) ID() int {
	return w.id
}

// Done はワーカーのゴルーチンが終了すると閉じられるチャネルを返す
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Join はワーカーのゴルーチンが終了するまで待つ
func (w *Worker) Join() {
	<-w.done
}

// run はワーカーのメインループ
func (w *Worker) run() {
	defer close(w.done)

	p := w.pool
	p.workerStarted(w)

	for {
		job, ok := w.queue.pop()
		if !ok {
			p.log.Info(w.tag, "disconnected; shutting down.")
			p.workerStopped(w)
			return
		}
		p.metrics.setQueueDepth(p.name, w.queue.len())

		p.log.Debug(w.tag, "got a job; executing.")
		if !w.execute(job) && p.faultPolicy == FaultRetire {
			p.log.Warn(w.tag, "retiring after panic; pool capacity is now %d", p.alive.Load()-1)
			p.workerRetired(w)
			return
		}
	}
}

// execute はジョブを一度だけ実行する。panic した場合は false を返す
func (w *Worker) execute(job Job) (ok bool) {
	p := w.pool
	p.jobStarted()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error(w.tag, "job panicked: %v", r)
			p.jobPanicked(w, r)
		}
		p.jobFinished(time.Since(start), ok)
	}()

	job()
	return true
}
