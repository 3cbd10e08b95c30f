package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hello-pool/internal/logger"
	"hello-pool/internal/worker"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Pool   PoolConfig   `yaml:"pool" json:"pool"`
	Admin  AdminConfig  `yaml:"admin" json:"admin"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// ServerConfig はリスナー設定
type ServerConfig struct {
	Addr           string `yaml:"addr" json:"addr"`
	SleepDelay     string `yaml:"sleep_delay" json:"sleep_delay"`
	ReadTimeout    string `yaml:"read_timeout" json:"read_timeout"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
}

// PoolConfig はワーカープール設定
type PoolConfig struct {
	Name        string `yaml:"name" json:"name"`
	Workers     int    `yaml:"workers" json:"workers"`
	FaultPolicy string `yaml:"fault_policy" json:"fault_policy"`
}

// AdminConfig は管理用 API 設定
type AdminConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	Addr              string `yaml:"addr" json:"addr"`
	BroadcastInterval string `yaml:"broadcast_interval" json:"broadcast_interval"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Config は実行時の設定（型付き）
type Config struct {
	Addr           string
	SleepDelay     time.Duration
	ReadTimeout    time.Duration
	MaxConnections int

	PoolName    string
	Workers     int
	FaultPolicy worker.FaultPolicy

	AdminEnabled      bool
	AdminAddr         string
	BroadcastInterval time.Duration

	LogLevel logger.Level
}

// Default はデフォルト設定を返す
func Default() Config {
	return Config{
		Addr:              "127.0.0.1:7878",
		SleepDelay:        5 * time.Second,
		ReadTimeout:       10 * time.Second,
		MaxConnections:    0, // 無制限
		PoolName:          "http",
		Workers:           4,
		FaultPolicy:       worker.FaultRecover,
		AdminEnabled:      false,
		AdminAddr:         "127.0.0.1:9090",
		BroadcastInterval: time.Second,
		LogLevel:          logger.LevelInfo,
	}
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate は設定を検証する
// workers は 0（未指定）か 1 以上。負の値はプール作成時に panic するのでここで弾く
func (f *FileConfig) Validate() error {
	if f.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative")
	}

	if f.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must be non-negative")
	}

	if _, err := worker.ParseFaultPolicy(f.Pool.FaultPolicy); err != nil {
		return fmt.Errorf("pool.fault_policy: %w", err)
	}

	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if f.Admin.Enabled && f.Admin.Addr != "" && f.Admin.Addr == f.Server.Addr {
		return fmt.Errorf("admin.addr must differ from server.addr")
	}

	return nil
}

// ToConfig は FileConfig を実行時の Config に変換する
// 未指定の項目はデフォルト値のまま
func (f *FileConfig) ToConfig() (Config, error) {
	config := Default()

	if f.Server.Addr != "" {
		config.Addr = f.Server.Addr
	}
	if f.Server.SleepDelay != "" {
		d, err := time.ParseDuration(f.Server.SleepDelay)
		if err != nil {
			return config, fmt.Errorf("invalid sleep delay: %w", err)
		}
		config.SleepDelay = d
	}
	if f.Server.ReadTimeout != "" {
		d, err := time.ParseDuration(f.Server.ReadTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid read timeout: %w", err)
		}
		config.ReadTimeout = d
	}
	if f.Server.MaxConnections > 0 {
		config.MaxConnections = f.Server.MaxConnections
	}

	// Pool設定
	if f.Pool.Name != "" {
		config.PoolName = f.Pool.Name
	}
	if f.Pool.Workers > 0 {
		config.Workers = f.Pool.Workers
	}
	policy, err := worker.ParseFaultPolicy(f.Pool.FaultPolicy)
	if err != nil {
		return config, err
	}
	config.FaultPolicy = policy

	// Admin設定
	config.AdminEnabled = f.Admin.Enabled
	if f.Admin.Addr != "" {
		config.AdminAddr = f.Admin.Addr
	}
	if f.Admin.BroadcastInterval != "" {
		d, err := time.ParseDuration(f.Admin.BroadcastInterval)
		if err != nil {
			return config, fmt.Errorf("invalid broadcast interval: %w", err)
		}
		config.BroadcastInterval = d
	}

	level, err := logger.ParseLevel(f.Log.Level)
	if err != nil {
		return config, err
	}
	config.LogLevel = level

	return config, nil
}
