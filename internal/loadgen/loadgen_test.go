package loadgen

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"hello-pool/internal/logger"
	"hello-pool/internal/server"
	"hello-pool/internal/worker"
)

func quietLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError)
}

// startServer はテスト用の hello サーバーを起動し、アドレスを返す
func startServer(t *testing.T, sleep time.Duration) string {
	t.Helper()

	pool := worker.NewPoolWithConfig(worker.PoolConfig{
		Name:       "server",
		NumWorkers: 4,
		Logger:     quietLogger(),
	})
	config := server.DefaultConfig()
	config.SleepDelay = sleep
	srv := server.New(pool, config, server.WithLogger(quietLogger()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, ln)
		close(done)
	}()
	<-srv.Ready()

	t.Cleanup(func() {
		cancel()
		<-done
		pool.Shutdown()
	})
	return ln.Addr().String()
}

func testConfig(addr string) Config {
	config := DefaultConfig(addr)
	config.Concurrency = 4
	config.Timeout = 2 * time.Second
	config.Logger = quietLogger()
	return config
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("127.0.0.1:7878")

	if config.Addr != "127.0.0.1:7878" {
		t.Errorf("expected Addr 127.0.0.1:7878, got %s", config.Addr)
	}
	if len(config.Paths) != 1 || config.Paths[0] != "/" {
		t.Errorf("expected Paths [/], got %v", config.Paths)
	}
	if config.SleepRatio != 0 {
		t.Errorf("expected SleepRatio 0, got %f", config.SleepRatio)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:1"})

	if c.IsRunning() {
		t.Error("expected client to not be running initially")
	}
	if c.config.Concurrency <= 0 {
		t.Errorf("expected positive concurrency, got %d", c.config.Concurrency)
	}
	if len(c.config.Paths) != 1 {
		t.Errorf("expected default path, got %v", c.config.Paths)
	}
}

func TestClientRunRequests(t *testing.T) {
	addr := startServer(t, 0)
	c := New(testConfig(addr))

	snapshot := c.RunRequests(context.Background(), 50)

	if snapshot.TotalRequests != 50 {
		t.Errorf("expected 50 requests, got %d", snapshot.TotalRequests)
	}
	if snapshot.FailedRequests != 0 {
		t.Errorf("expected no failures, got %d", snapshot.FailedRequests)
	}
	if snapshot.Routes["/"] != 50 {
		t.Errorf("expected 50 requests on /, got %d", snapshot.Routes["/"])
	}
	if c.IsRunning() {
		t.Error("expected client to be stopped after RunRequests")
	}
}

func TestClientMixedPaths(t *testing.T) {
	addr := startServer(t, 0)
	config := testConfig(addr)
	config.Paths = []string{"/", "/missing"}
	c := New(config)

	snapshot := c.RunRequests(context.Background(), 40)

	if snapshot.TotalRequests != 40 {
		t.Errorf("expected 40 requests, got %d", snapshot.TotalRequests)
	}
	// 404 も正常なレスポンスとして数える
	if snapshot.SuccessRequests != 40 {
		t.Errorf("expected 40 successes, got %d", snapshot.SuccessRequests)
	}
	if snapshot.Routes["/"]+snapshot.Routes["/missing"] != 40 {
		t.Errorf("unexpected route counts: %v", snapshot.Routes)
	}
}

func TestClientSleepRatio(t *testing.T) {
	addr := startServer(t, 10*time.Millisecond)
	config := testConfig(addr)
	config.SleepRatio = 1
	c := New(config)

	snapshot := c.RunRequests(context.Background(), 8)

	if snapshot.Routes["/sleep"] != 8 {
		t.Errorf("expected 8 requests on /sleep, got %v", snapshot.Routes)
	}
	if snapshot.AverageLatency < 10*time.Millisecond {
		t.Errorf("expected average latency >= 10ms, got %v", snapshot.AverageLatency)
	}
}

func TestClientStartStop(t *testing.T) {
	addr := startServer(t, 0)
	c := New(testConfig(addr))

	ctx := context.Background()
	c.Start(ctx)
	if !c.IsRunning() {
		t.Error("expected client to be running after Start")
	}

	time.Sleep(50 * time.Millisecond)

	c.Stop()
	if c.IsRunning() {
		t.Error("expected client to not be running after Stop")
	}
	if c.Metrics().TotalRequests() == 0 {
		t.Error("expected some requests to be recorded")
	}

	// 2回目の Stop は何もしない
	c.Stop()
}

func TestClientRunFor(t *testing.T) {
	addr := startServer(t, 0)
	c := New(testConfig(addr))

	snapshot := c.RunFor(context.Background(), 100*time.Millisecond)

	if snapshot.TotalRequests == 0 {
		t.Error("expected some requests")
	}
	if snapshot.Elapsed < 100*time.Millisecond {
		t.Errorf("expected at least 100ms elapsed, got %v", snapshot.Elapsed)
	}
}

func TestClientRecordsFailures(t *testing.T) {
	// 何も listen していないアドレスを用意する
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	config := testConfig(addr)
	config.Timeout = 200 * time.Millisecond
	c := New(config)

	snapshot := c.RunRequests(context.Background(), 5)

	if snapshot.FailedRequests != 5 {
		t.Errorf("expected 5 failures, got %d", snapshot.FailedRequests)
	}
	if snapshot.ErrorRate != 1 {
		t.Errorf("expected error rate 1, got %f", snapshot.ErrorRate)
	}
}
