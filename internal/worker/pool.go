package worker

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"hello-pool/internal/events"
	"hello-pool/internal/logger"
)

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	Name        string         // ログやメトリクスのラベル（空なら "pool"）
	NumWorkers  int            // ワーカー数（1 以上）
	FaultPolicy FaultPolicy    // ジョブが panic したときの方針
	Logger      *logger.Logger // nil なら logger.Default
	Metrics     *Metrics       // nil ならメトリクスを記録しない
	Events      *events.Bus    // nil ならイベントを発行しない
}

// Stats はプールの状態のスナップショット
type Stats struct {
	Name        string `json:"name"`
	Workers     int    `json:"workers"`
	Alive       int    `json:"alive"`
	Active      int    `json:"active"`
	Queued      int    `json:"queued"`
	Submitted   uint64 `json:"submitted"`
	Completed   uint64 `json:"completed"`
	Panicked    uint64 `json:"panicked"`
	FaultPolicy string `json:"fault_policy"`
	Closed      bool   `json:"closed"`
}

// Pool は固定数のワーカーゴルーチンとその共有キューを管理する
type Pool struct {
	name        string
	faultPolicy FaultPolicy
	queue       *queue
	workers     []*Worker
	log         *logger.Logger
	metrics     *Metrics
	events      *events.Bus

	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	active    atomic.Int32
	alive     atomic.Int32

	shutdownOnce sync.Once
}

// NewPool は size 個のワーカーを持つプールを作成する
// size が 1 未満の場合は panic する
func NewPool(size int) *Pool {
	return NewPoolWithConfig(PoolConfig{NumWorkers: size})
}

// NewPoolWithConfig は設定を指定してプールを作成し、ワーカーを即座に起動する
func NewPoolWithConfig(config PoolConfig) *Pool {
	if config.NumWorkers < 1 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidSize, config.NumWorkers))
	}

	name := config.Name
	if name == "" {
		name = "pool"
	}
	log := config.Logger
	if log == nil {
		log = logger.Default
	}

	p := &Pool{
		name:        name,
		faultPolicy: config.FaultPolicy,
		queue:       newQueue(),
		workers:     make([]*Worker, 0, config.NumWorkers),
		log:         log,
		metrics:     config.Metrics,
		events:      config.Events,
	}

	// ゴルーチンの起動を待たずに、構築直後から全員を生存として数える
	p.alive.Store(int32(config.NumWorkers))
	p.metrics.setWorkerCount(name, config.NumWorkers)
	p.metrics.setAliveWorkers(name, config.NumWorkers)
	p.metrics.setQueueDepth(name, 0)
	p.metrics.setActiveWorkers(name, 0)

	for i := range config.NumWorkers {
		p.workers = append(p.workers, newWorker(i, p))
	}

	p.log.Info(name, "started %d workers (fault policy: %s)", config.NumWorkers, config.FaultPolicy)
	return p
}

// Execute はジョブをキューに投入する。ブロックせず、完了も待たない
// シャットダウン開始後の呼び出しはライフサイクルの誤りなので panic する
func (p *Pool) Execute(job Job) {
	if err := p.Submit(job); err != nil {
		panic(err)
	}
}

// Submit は Execute と同じだが、投入できない場合は panic せずエラーを返す
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	if err := p.queue.push(job); err != nil {
		p.metrics.recordRejected(p.name)
		return err
	}

	p.submitted.Add(1)
	p.metrics.recordSubmitted(p.name)
	p.metrics.setQueueDepth(p.name, p.queue.len())
	return nil
}

// Shutdown はプールを停止する
//
// 1. キューを閉じて新しい投入を拒否する
// 2. ワーカーを番号順に join する
//
// 閉じる前に join すると、ワーカーが空のキューで永遠に待つためデッドロックする。
// 複数回呼んでも安全で、並行して呼んだ側も停止完了まで待つ。
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		start := time.Now()
		p.queue.close()

		for _, w := range p.workers {
			p.log.Info(p.name, "Shutting down worker %d", w.id)
			w.Join()
		}

		// FaultRetire で全ワーカーが退役した場合のみ残りうる
		dropped := p.queue.drain()
		if dropped > 0 {
			p.log.Warn(p.name, "%d queued jobs dropped: no workers left to run them", dropped)
		}
		p.metrics.setQueueDepth(p.name, 0)

		p.publish(events.NewPoolShutdownEvent(p.name, len(p.workers), dropped))
		p.log.Info(p.name, "stopped in %v", time.Since(start))
	})
}

// Name はプール名を返す
func (p *Pool) Name() string {
	return p.name
}

// Size は構築時のワーカー数を返す
func (p *Pool) Size() int {
	return len(p.workers)
}

// Alive はまだ終了していないワーカー数を返す
func (p *Pool) Alive() int {
	return int(p.alive.Load())
}

// Workers はワーカーを番号順に返す。スライスはコピー
func (p *Pool) Workers() []*Worker {
	return slices.Clone(p.workers)
}

// QueueSize は実行待ちのジョブ数を返す
func (p *Pool) QueueSize() int {
	return p.queue.len()
}

// Closed はシャットダウンが開始されたかどうかを返す
func (p *Pool) Closed() bool {
	return p.queue.isClosed()
}

// Stats は現在の状態のスナップショットを返す
func (p *Pool) Stats() Stats {
	return Stats{
		Name:        p.name,
		Workers:     len(p.workers),
		Alive:       int(p.alive.Load()),
		Active:      int(p.active.Load()),
		Queued:      p.queue.len(),
		Submitted:   p.submitted.Load(),
		Completed:   p.completed.Load(),
		Panicked:    p.panicked.Load(),
		FaultPolicy: p.faultPolicy.String(),
		Closed:      p.queue.isClosed(),
	}
}

// 以下はワーカーから呼ばれる記録用フック

func (p *Pool) workerStarted(w *Worker) {
	p.publish(events.NewWorkerStartedEvent(p.name, w.id))
}

func (p *Pool) workerStopped(w *Worker) {
	p.metrics.setAliveWorkers(p.name, int(p.alive.Add(-1)))
	p.publish(events.NewWorkerStoppedEvent(p.name, w.id))
}

func (p *Pool) workerRetired(w *Worker) {
	alive := p.alive.Add(-1)
	p.metrics.setAliveWorkers(p.name, int(alive))
	p.publish(events.NewWorkerRetiredEvent(p.name, w.id))
	if alive == 0 {
		p.log.Error(p.name, "all workers retired; queued jobs will not run")
	}
}

func (p *Pool) jobStarted() {
	p.metrics.setActiveWorkers(p.name, int(p.active.Add(1)))
}

func (p *Pool) jobFinished(elapsed time.Duration, ok bool) {
	if ok {
		p.completed.Add(1)
	}
	p.metrics.observeJob(p.name, elapsed, ok)
	p.metrics.setActiveWorkers(p.name, int(p.active.Add(-1)))
}

func (p *Pool) jobPanicked(w *Worker, recovered any) {
	p.panicked.Add(1)
	p.publish(events.NewJobPanickedEvent(p.name, w.id, recovered))
}

func (p *Pool) publish(ev events.Event) {
	if p.events != nil {
		p.events.Publish(ev)
	}
}
