package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"hello-pool/internal/events"
	"hello-pool/internal/logger"
	"hello-pool/internal/metrics"
	"hello-pool/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

// Options は管理 API サーバーの設定
type Options struct {
	Addr              string
	Pool              *worker.Pool
	Requests          *metrics.Metrics    // リスナーのリクエストメトリクス（nil 可）
	Events            *events.Bus         // プールのイベント（nil 可）
	Gatherer          prometheus.Gatherer // nil なら prometheus.DefaultGatherer
	BroadcastInterval time.Duration       // /ws へのステータス配信間隔（0 で 1 秒）
	Logger            *logger.Logger
}

// Server は管理用の HTTP API サーバー
type Server struct {
	addr     string
	pool     *worker.Pool
	requests *metrics.Metrics
	bus      *events.Bus
	gatherer prometheus.Gatherer
	interval time.Duration
	log      *logger.Logger

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しい管理 API サーバーを作成する
func NewServer(opts Options) *Server {
	s := &Server{
		addr:      opts.Addr,
		pool:      opts.Pool,
		requests:  opts.Requests,
		bus:       opts.Events,
		gatherer:  opts.Gatherer,
		interval:  opts.BroadcastInterval,
		log:       opts.Logger,
		wsClients: make(map[*websocket.Conn]bool),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.log == nil {
		s.log = logger.Default
	}
	return s
}

// Handler はルーティング済みの http.Handler を返す
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, middleware.Recoverer, s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleMetrics)
	})

	r.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return r
}

// Start はサーバーを開始し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastLoop(ctx)
	go s.eventLoop(ctx)

	s.log.Info("admin", "API server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestID は X-Request-Id を引き継ぐか UUID を払い出し、レスポンスにも付与する
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("admin", "[%s] %s %s -> %d (%v)",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Pool     worker.Stats     `json:"pool"`
	Workers  []WorkerStatus   `json:"workers"`
	Requests *MetricsResponse `json:"requests,omitempty"`
}

// WorkerStatus は個々のワーカーの状態
type WorkerStatus struct {
	ID      int  `json:"id"`
	Running bool `json:"running"`
}

func workerStatuses(pool *worker.Pool) []WorkerStatus {
	workers := pool.Workers()
	statuses := make([]WorkerStatus, 0, len(workers))
	for _, w := range workers {
		running := true
		select {
		case <-w.Done():
			running = false
		default:
		}
		statuses = append(statuses, WorkerStatus{ID: w.ID(), Running: running})
	}
	return statuses
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Pool:    s.pool.Stats(),
		Workers: workerStatuses(s.pool),
	}
	if s.requests != nil {
		m := newMetricsResponse(s.requests.Snapshot())
		resp.Requests = &m
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.status())
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	TotalRequests   uint64            `json:"total_requests"`
	SuccessRequests uint64            `json:"success_requests"`
	FailedRequests  uint64            `json:"failed_requests"`
	RPS             float64           `json:"rps"`
	WindowRPS       float64           `json:"window_rps"`
	AvgLatencyMs    float64           `json:"avg_latency_ms"`
	P99LatencyMs    float64           `json:"p99_latency_ms"`
	ErrorRate       float64           `json:"error_rate"`
	Routes          map[string]uint64 `json:"routes,omitempty"`
}

func newMetricsResponse(snap metrics.Snapshot) MetricsResponse {
	return MetricsResponse{
		TotalRequests:   snap.TotalRequests,
		SuccessRequests: snap.SuccessRequests,
		FailedRequests:  snap.FailedRequests,
		RPS:             snap.OverallRPS,
		WindowRPS:       snap.RPS,
		AvgLatencyMs:    float64(snap.AverageLatency) / float64(time.Millisecond),
		P99LatencyMs:    float64(snap.P99Latency) / float64(time.Millisecond),
		ErrorRate:       snap.ErrorRate,
		Routes:          snap.Routes,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.requests == nil {
		http.Error(w, "request metrics not available", http.StatusNotFound)
		return
	}
	s.writeJSON(w, newMetricsResponse(s.requests.Snapshot()))
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// クライアントが切断するまで接続を維持する
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中の WebSocket クライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ws := range s.wsClients {
		_ = ws.Close()
	}
}

// broadcastLoop は一定間隔でステータスを配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.ClientCount() > 0 {
				s.broadcast(map[string]any{
					"type":   "status",
					"status": s.status(),
				})
			}
			// 配信ごとに RPS とレイテンシのウィンドウを切り替える
			if s.requests != nil {
				s.requests.Reset()
			}
		}
	}
}

// eventLoop はプールのイベントをそのまま配信する
func (s *Server) eventLoop(ctx context.Context) {
	if s.bus == nil {
		return
	}
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": ev,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("admin", "Failed to encode JSON: %v", err)
	}
}
