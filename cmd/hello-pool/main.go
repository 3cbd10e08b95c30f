// Package main is the entry point for hello-pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hello-pool/internal/api"
	"hello-pool/internal/config"
	"hello-pool/internal/events"
	"hello-pool/internal/loadgen"
	"hello-pool/internal/logger"
	"hello-pool/internal/metrics"
	"hello-pool/internal/server"
	"hello-pool/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"
)

// errBenchDone はベンチマーク完了を errgroup に伝えてサーバーを止めるための番兵
var errBenchDone = errors.New("benchmark finished")

// flagValues はコマンドラインフラグの値
type flagValues struct {
	addr        string
	workers     int
	sleep       time.Duration
	admin       bool
	adminAddr   string
	faultPolicy string
	logLevel    string
}

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		addr        = flag.String("addr", "127.0.0.1:7878", "リスナーアドレス")
		workers     = flag.Int("workers", 4, "ワーカー数")
		sleep       = flag.Duration("sleep", 5*time.Second, "/sleep の待ち時間")
		admin       = flag.Bool("admin", false, "管理 API を有効化")
		adminAddr   = flag.String("admin-addr", "127.0.0.1:9090", "管理 API アドレス")
		faultPolicy = flag.String("fault-policy", "recover", "ジョブ panic 時の方針 (recover, retire)")
		logLevel    = flag.String("log-level", "info", "ログレベル (debug, info, warn, error)")
		bench       = flag.Uint64("bench", 0, "起動後に指定数のリクエストを送って終了する")
		showVersion = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `hello-pool - Multi-threaded hello server on a fixed-size worker pool

Usage:
  hello-pool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト設定で起動 (127.0.0.1:7878, 4 workers)
  hello-pool

  # 設定ファイルから起動
  hello-pool --config hello-pool.yaml

  # 管理 API を有効化
  hello-pool --admin --admin-addr 127.0.0.1:9090

  # 1000 リクエストのベンチマーク
  hello-pool --bench 1000 --workers 8
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("hello-pool version %s\n", version)
		return
	}

	// 明示的に指定されたフラグだけ設定を上書きする
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := buildConfig(*configFile, set, flagValues{
		addr:        *addr,
		workers:     *workers,
		sleep:       *sleep,
		admin:       *admin,
		adminAddr:   *adminAddr,
		faultPolicy: *faultPolicy,
		logLevel:    *logLevel,
	})
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	if err := run(cfg, *bench); err != nil {
		logger.Error("", "実行エラー: %v", err)
		os.Exit(1)
	}
}

// buildConfig は設定を構築する（デフォルト < 設定ファイル < フラグ）
func buildConfig(configFile string, set map[string]bool, v flagValues) (config.Config, error) {
	cfg := config.Default()

	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, fmt.Errorf("設定検証エラー: %w", err)
		}
		cfg, err = fileConfig.ToConfig()
		if err != nil {
			return cfg, fmt.Errorf("設定変換エラー: %w", err)
		}
	}

	// フラグでオーバーライド
	if set["addr"] {
		cfg.Addr = v.addr
	}
	if set["workers"] {
		if v.workers < 1 {
			return cfg, fmt.Errorf("workers must be at least 1, got %d", v.workers)
		}
		cfg.Workers = v.workers
	}
	if set["sleep"] {
		cfg.SleepDelay = v.sleep
	}
	if set["admin"] {
		cfg.AdminEnabled = v.admin
	}
	if set["admin-addr"] {
		cfg.AdminAddr = v.adminAddr
	}
	if set["fault-policy"] {
		policy, err := worker.ParseFaultPolicy(v.faultPolicy)
		if err != nil {
			return cfg, err
		}
		cfg.FaultPolicy = policy
	}
	if set["log-level"] {
		level, err := logger.ParseLevel(v.logLevel)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = level
	}

	if cfg.AdminEnabled && cfg.AdminAddr == cfg.Addr {
		return cfg, fmt.Errorf("admin address must differ from listener address (%s)", cfg.Addr)
	}

	return cfg, nil
}

// run はリスナーと管理 API を起動し、シグナルかベンチマーク完了まで動かす
func run(cfg config.Config, bench uint64) error {
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := events.NewBus()
	defer bus.Close()

	pool := worker.NewPoolWithConfig(worker.PoolConfig{
		Name:        cfg.PoolName,
		NumWorkers:  cfg.Workers,
		FaultPolicy: cfg.FaultPolicy,
		Metrics:     worker.NewMetrics(reg),
		Events:      bus,
	})
	// リスナーと管理 API が止まった後にプールを止める（処理中の接続は最後まで処理される）
	defer pool.Shutdown()

	requests := metrics.New()
	srv := server.New(pool, server.Config{
		Addr:           cfg.Addr,
		SleepDelay:     cfg.SleepDelay,
		ReadTimeout:    cfg.ReadTimeout,
		MaxConnections: cfg.MaxConnections,
	}, server.WithMetrics(requests), server.WithRegisterer(reg))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if cfg.AdminEnabled {
		adminServer := api.NewServer(api.Options{
			Addr:              cfg.AdminAddr,
			Pool:              pool,
			Requests:          requests,
			Events:            bus,
			Gatherer:          reg,
			BroadcastInterval: cfg.BroadcastInterval,
		})
		g.Go(func() error {
			return adminServer.Start(gctx)
		})
	}

	if bench > 0 {
		g.Go(func() error {
			select {
			case <-srv.Ready():
			case <-gctx.Done():
				return nil
			}
			client := loadgen.New(loadgen.Config{
				Addr:        srv.Addr().String(),
				Concurrency: cfg.Workers,
				Timeout:     cfg.SleepDelay + cfg.ReadTimeout,
			})
			snapshot := client.RunRequests(gctx, bench)
			printReport(snapshot)
			return errBenchDone
		})
	}

	err := g.Wait()
	if errors.Is(err, errBenchDone) {
		return nil
	}
	return err
}

// printReport はベンチマーク結果を表示する
func printReport(s *metrics.Snapshot) {
	fmt.Println()
	fmt.Println("Benchmark Report")
	fmt.Println("====================================================")
	fmt.Printf("Requests:    %d (success: %d, failed: %d)\n", s.TotalRequests, s.SuccessRequests, s.FailedRequests)
	fmt.Printf("Elapsed:     %v\n", s.Elapsed.Round(time.Millisecond))
	fmt.Printf("RPS:         %.1f\n", s.OverallRPS)
	fmt.Printf("Avg latency: %v\n", s.AverageLatency)
	fmt.Printf("P99 latency: %v\n", s.P99Latency)
	fmt.Printf("Error rate:  %.2f%%\n", s.ErrorRate*100)
	fmt.Println("====================================================")
}
