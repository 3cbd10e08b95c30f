package worker

import "sync"

// queue は複数の送信者と複数のワーカーが共有する無制限の FIFO キュー
//
// pop はアイテムが来るかキューが閉じられて空になるまでブロックする。
// 各アイテムはちょうど一つの pop にだけ渡される。
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Job
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push はジョブを末尾に追加し、待機中のワーカーを一つ起こす
func (q *queue) push(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrPoolClosed
	}
	q.items = append(q.items, job)
	q.cond.Signal()
	return nil
}

// pop は先頭のジョブを取り出す
// キューが閉じられていて空なら (nil, false) を返す。これが終了の合図になる
func (q *queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}

	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return job, true
}

// close は以降の push を拒否し、待機中のワーカーを全員起こす
// 残っているジョブは引き続き pop できる
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// drain は残っているジョブを捨て、その件数を返す
func (q *queue) drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
