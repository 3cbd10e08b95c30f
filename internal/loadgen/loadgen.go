package loadgen

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hello-pool/internal/logger"
	"hello-pool/internal/metrics"
	"hello-pool/internal/worker"
)

// Config は負荷生成器の設定
type Config struct {
	Addr          string        // 対象サーバーのアドレス
	Concurrency   int           // 同時接続数（0でCPU数）
	Paths         []string      // リクエストするパス（空なら "/"）
	SleepRatio    float64       // /sleep を混ぜる比率（0.0〜1.0）
	Timeout       time.Duration // 1リクエストあたりのタイムアウト
	RequestsLimit uint64        // リクエスト上限（0で無制限）
	Logger        *logger.Logger
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig(addr string) Config {
	return Config{
		Addr:        addr,
		Concurrency: 0,
		Paths:       []string{"/"},
		SleepRatio:  0,
		Timeout:     10 * time.Second,
	}
}

// Client は hello サーバーに対する負荷生成器
type Client struct {
	config  Config
	log     *logger.Logger
	metrics *metrics.Metrics

	pool   *worker.Pool
	slots  chan struct{}
	issued atomic.Uint64

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New は新しいClientを作成する
func New(config Config) *Client {
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if len(config.Paths) == 0 {
		config.Paths = []string{"/"}
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = logger.Default
	}
	return &Client{
		config:  config,
		log:     log,
		metrics: metrics.New(),
	}
}

// Start は負荷生成を開始する
func (c *Client) Start(ctx context.Context) {
	if c.running.Swap(true) {
		return
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.pool = worker.NewPoolWithConfig(worker.PoolConfig{
		Name:       "loadgen",
		NumWorkers: c.config.Concurrency,
		Logger:     c.log,
	})
	// キューが無制限なので、投入数をワーカー数で抑える
	c.slots = make(chan struct{}, c.config.Concurrency)

	c.log.Info("loadgen", "Client started (target: %s, concurrency: %d, sleep_ratio: %.1f%%)",
		c.config.Addr, c.config.Concurrency, c.config.SleepRatio*100)

	c.wg.Add(1)
	go c.generateRequests()
}

// generateRequests はリクエストを生成し続ける
func (c *Client) generateRequests() {
	defer c.wg.Done()

	for {
		if c.config.RequestsLimit > 0 && c.issued.Load() >= c.config.RequestsLimit {
			return
		}

		select {
		case <-c.ctx.Done():
			return
		case c.slots <- struct{}{}:
		}

		path := c.config.Paths[rand.Intn(len(c.config.Paths))]
		if c.config.SleepRatio > 0 && rand.Float64() < c.config.SleepRatio {
			path = "/sleep"
		}

		c.issued.Add(1)
		if err := c.pool.Submit(c.createJob(path)); err != nil {
			<-c.slots
			return
		}
	}
}

// createJob はリクエストジョブを作成する
func (c *Client) createJob(path string) worker.Job {
	return func() {
		defer func() { <-c.slots }()

		start := time.Now()
		status, err := c.do(path)
		latency := time.Since(start)

		if err != nil {
			c.log.Debug("loadgen", "GET %s failed: %v", path, err)
			c.metrics.RecordRoute(path, latency, false)
			return
		}
		c.log.Debug("loadgen", "GET %s -> %s (%v)", path, status, latency)
		c.metrics.RecordRoute(path, latency, true)
	}
}

// do は1リクエストを送り、レスポンスのステータス行を返す
func (c *Client) do(path string) (string, error) {
	conn, err := net.DialTimeout("tcp", c.config.Addr, c.config.Timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.config.Timeout)); err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: %s\r\n\r\n", path, c.config.Addr); err != nil {
		return "", err
	}

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read status line: %w", err)
	}
	status = strings.TrimRight(status, "\r\n")
	if !strings.HasPrefix(status, "HTTP/1.1 ") {
		return "", fmt.Errorf("unexpected status line %q", status)
	}
	return status, nil
}

// Stop は負荷生成を停止し、実行中のリクエストの完了を待つ
func (c *Client) Stop() {
	if !c.running.Swap(false) {
		return
	}

	c.cancel()
	c.wg.Wait()
	c.pool.Shutdown()

	c.log.Info("loadgen", "Client stopped (%d requests)", c.metrics.TotalRequests())
}

// Metrics はメトリクスを返す
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// IsRunning は実行中かどうかを返す
func (c *Client) IsRunning() bool {
	return c.running.Load()
}

// RunFor は指定時間だけ負荷生成を実行する
func (c *Client) RunFor(ctx context.Context, duration time.Duration) *metrics.Snapshot {
	c.Start(ctx)

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}

	c.Stop()

	snapshot := c.metrics.Snapshot()
	return &snapshot
}

// RunRequests は指定数のリクエストを実行する
func (c *Client) RunRequests(ctx context.Context, count uint64) *metrics.Snapshot {
	c.config.RequestsLimit = count
	c.Start(ctx)
	c.wg.Wait()
	c.Stop()

	snapshot := c.metrics.Snapshot()
	return &snapshot
}
