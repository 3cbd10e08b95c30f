package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics はワーカープールの Prometheus メトリクス
// 全メソッドは nil レシーバでも呼べる（その場合は何もしない）
type Metrics struct {
	JobsSubmitted *prometheus.CounterVec
	JobsRejected  *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	QueueDepth    *prometheus.GaugeVec
	ActiveWorkers *prometheus.GaugeVec
	AliveWorkers  *prometheus.GaugeVec
	WorkerCount   *prometheus.GaugeVec
}

// NewMetrics はメトリクスを作成し reg に登録する
// reg が nil の場合は登録しない
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workerpool_jobs_submitted_total",
				Help: "Total number of jobs accepted by the pool",
			},
			[]string{"pool"},
		),
		JobsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workerpool_jobs_rejected_total",
				Help: "Total number of jobs rejected because the pool was closed",
			},
			[]string{"pool"},
		),
		JobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workerpool_jobs_completed_total",
				Help: "Total number of jobs that finished, by status",
			},
			[]string{"pool", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workerpool_job_duration_seconds",
				Help:    "Duration of job execution in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pool"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "workerpool_queue_depth",
				Help: "Current number of jobs waiting in the queue",
			},
			[]string{"pool"},
		),
		ActiveWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "workerpool_active_workers",
				Help: "Current number of workers running a job",
			},
			[]string{"pool"},
		),
		AliveWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "workerpool_alive_workers",
				Help: "Current number of worker goroutines that have not exited",
			},
			[]string{"pool"},
		),
		WorkerCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "workerpool_worker_count",
				Help: "Configured number of workers in the pool",
			},
			[]string{"pool"},
		),
	}
}

func (m *Metrics) recordSubmitted(pool string) {
	if m == nil {
		return
	}
	m.JobsSubmitted.WithLabelValues(pool).Inc()
}

func (m *Metrics) recordRejected(pool string) {
	if m == nil {
		return
	}
	m.JobsRejected.WithLabelValues(pool).Inc()
}

func (m *Metrics) observeJob(pool string, elapsed time.Duration, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "panicked"
	}
	m.JobsCompleted.WithLabelValues(pool, status).Inc()
	m.JobDuration.WithLabelValues(pool).Observe(elapsed.Seconds())
}

func (m *Metrics) setQueueDepth(pool string, n int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(pool).Set(float64(n))
}

func (m *Metrics) setActiveWorkers(pool string, n int) {
	if m == nil {
		return
	}
	m.ActiveWorkers.WithLabelValues(pool).Set(float64(n))
}

func (m *Metrics) setAliveWorkers(pool string, n int) {
	if m == nil {
		return
	}
	m.AliveWorkers.WithLabelValues(pool).Set(float64(n))
}

func (m *Metrics) setWorkerCount(pool string, n int) {
	if m == nil {
		return
	}
	m.WorkerCount.WithLabelValues(pool).Set(float64(n))
}
