package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"hello-pool/internal/logger"
	"hello-pool/internal/metrics"
	"hello-pool/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/netutil"
)

// Config はリスナーの設定
type Config struct {
	Addr           string
	SleepDelay     time.Duration // /sleep の待ち時間
	ReadTimeout    time.Duration // リクエスト読み込みの期限（0 で無制限）
	MaxConnections int           // 同時接続数の上限（0 で無制限）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:7878",
		SleepDelay:  5 * time.Second,
		ReadTimeout: 10 * time.Second,
	}
}

// Option は Server のオプション
type Option func(*Server)

// WithLogger はロガーを指定する
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics はリクエストメトリクスの記録先を指定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRegisterer は Prometheus のリクエストカウンタの登録先を指定する
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) { s.registerer = reg }
}

// Server は接続を一つずつ受け付け、各接続をジョブとしてプールに渡すリスナー
type Server struct {
	config     Config
	pool       *worker.Pool
	router     *Router
	log        *logger.Logger
	metrics    *metrics.Metrics
	registerer prometheus.Registerer

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// New は新しいサーバーを作成する。pool の停止は呼び出し側の責任
func New(pool *worker.Pool, config Config, opts ...Option) *Server {
	s := &Server{
		config:  config,
		pool:    pool,
		router:  NewRouter(config.SleepDelay),
		log:     logger.Default,
		metrics: metrics.New(),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	factory := promauto.With(s.registerer)
	s.requests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_requests_total",
			Help: "Total requests served by the listener",
		},
		[]string{"route", "status"},
	)
	s.duration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hello_request_duration_seconds",
			Help:    "Time from accepting a connection to writing the response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	return s
}

// Metrics はリクエストメトリクスを返す
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Ready はリスナーが接続を受け付け始めると閉じられるチャネルを返す
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr は待ち受け中のアドレスを返す。まだ待ち受けていなければ nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe は設定されたアドレスで待ち受けを開始する
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln で接続を受け付け、接続ごとに一つのジョブをプールに投入する
//
// ctx がキャンセルされるとリスナーを閉じて nil を返す。
// 処理中の接続はプールに残るので、呼び出し側はこの後でプールを停止すること。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return errors.New("server: already serving")
	}
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	s.log.Info("server", "listening on %s (workers: %d)", ln.Addr(), s.pool.Size())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info("server", "listener closed")
				return nil
			}
			// EMFILE などは少し待って再試行する
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, time.Second)
			}
			s.log.Warn("server", "accept error: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		accepted := time.Now()
		if err := s.pool.Submit(func() { s.handleConnection(conn, accepted) }); err != nil {
			_ = conn.Close()
			return fmt.Errorf("submit connection: %w", err)
		}
	}
}

// handleConnection は一つの接続を処理する（リクエスト行を読み、応答を書いて閉じる）
func (s *Server) handleConnection(conn net.Conn, accepted time.Time) {
	defer func() { _ = conn.Close() }()

	tag := "conn-" + uuid.NewString()[:8]

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	requestLine, err := readRequest(bufio.NewReader(conn))
	if err != nil {
		s.log.Warn(tag, "failed to read request from %s: %v", conn.RemoteAddr(), err)
		s.record(RouteNotFound, statusNoResponse, time.Since(accepted))
		return
	}

	resp := s.router.Route(requestLine)
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	if _, err := conn.Write(resp.Bytes()); err != nil {
		s.log.Warn(tag, "failed to write response: %v", err)
		s.record(resp.Route, statusNoResponse, time.Since(accepted))
		return
	}

	elapsed := time.Since(accepted)
	s.record(resp.Route, resp.StatusCode, elapsed)
	s.log.Debug(tag, "%q -> %d (%v)", requestLine, resp.StatusCode, elapsed)
}

// statusNoResponse は応答を返せなかった接続に付けるステータス
const statusNoResponse = 0

// record は一つの接続の結果を prometheus とリクエストメトリクスの両方に記録する
// リクエストメトリクスを最後に更新するので、それが見えた時点で prometheus 側も反映済み
func (s *Server) record(route string, status int, elapsed time.Duration) {
	s.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	s.duration.WithLabelValues(route).Observe(elapsed.Seconds())
	s.metrics.RecordRoute(route, elapsed, status != statusNoResponse)
}

// readRequest はリクエスト行だけを読む
// 既にバッファに入っている残り（ヘッダ）は読み捨てるが、それ以上は待たない
func readRequest(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	_, _ = r.Discard(r.Buffered())
	return strings.TrimRight(line, "\r\n"), nil
}
