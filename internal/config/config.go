// Package config загружает конфигурацию сервиса и CLI.
package config

import (
	"errors"
	"fmt"
	"time"

	"nestor-insights/internal/features"
	"nestor-insights/internal/insights"
	"nestor-insights/internal/logging"
	"nestor-insights/internal/models"
	"nestor-insights/internal/patterns"
	"nestor-insights/internal/readiness"
)

// Config конфигурация приложения
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	Analyzer  AnalyzerConfig  `koanf:"analyzer"`
	Features  features.Config `koanf:"features"`
	Readiness ReadinessConfig `koanf:"readiness"`
	Patterns  patterns.Config `koanf:"patterns"`
	Insights  InsightsConfig  `koanf:"insights"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Stream    StreamConfig    `koanf:"stream"`
	Logging   logging.Config  `koanf:"logging"`
}

// ServerConfig HTTP сервер
type ServerConfig struct {
	Port            string        `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// RedisConfig хранилище показаний и кэш отчетов
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	PoolSize    int           `koanf:"pool_size"`
	Retention   time.Duration `koanf:"retention"`
	InsightsTTL time.Duration `koanf:"insights_ttl"`
}

// PostgresConfig пустой DSN означает хранение анкет в памяти
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
	Migrate  bool   `koanf:"migrate"`
}

// Enabled задан ли DSN
func (c PostgresConfig) Enabled() bool { return c.DSN != "" }

// AnalyzerConfig потоковый анализатор показаний
type AnalyzerConfig struct {
	WindowSize int           `koanf:"window_size"`
	Threshold  float64       `koanf:"threshold"`
	Workers    int           `koanf:"workers"`
	QueueSize  int           `koanf:"queue_size"`
	IdleTTL    time.Duration `koanf:"idle_ttl"`
}

// ReadinessConfig таблица весов оценки готовности
type ReadinessConfig struct {
	Weights readiness.Weights `koanf:"weights"`
}

// InsightsConfig параметры движка и горизонт по умолчанию
type InsightsConfig struct {
	insights.Config `koanf:",squash"`
	TimeFrame       models.TimeFrame `koanf:"timeframe"`
	HistoryDays     int              `koanf:"history_days"`
}

// RateLimitConfig token bucket на клиента
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// StreamConfig websocket рассылка аномалий
type StreamConfig struct {
	WriteTimeout time.Duration `koanf:"write_timeout"`
	BufferSize   int           `koanf:"buffer_size"`
}

// Default конфигурация по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    4 << 20,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    100,
			Retention:   90 * 24 * time.Hour,
			InsightsTTL: 15 * time.Minute,
		},
		Postgres: PostgresConfig{MaxConns: 10, Migrate: true},
		Analyzer: AnalyzerConfig{
			WindowSize: 50,
			Threshold:  insights.DefaultAnomalySigma,
			Workers:    4,
			QueueSize:  1000,
			IdleTTL:    24 * time.Hour,
		},
		Features:  features.DefaultConfig(),
		Readiness: ReadinessConfig{Weights: readiness.DefaultWeights()},
		Patterns:  patterns.DefaultConfig(),
		Insights: InsightsConfig{
			Config:      insights.DefaultConfig(),
			TimeFrame:   models.TimeFrameWeek,
			HistoryDays: 90,
		},
		RateLimit: RateLimitConfig{Enabled: true, RPS: 50, Burst: 100},
		Stream:    StreamConfig{WriteTimeout: 5 * time.Second, BufferSize: 64},
		Logging:   logging.DefaultConfig(),
	}
}

// applyDefaults заполняет незаданные значения
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.Port == "" {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = def.Redis.Addr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = def.Redis.PoolSize
	}
	if cfg.Redis.Retention == 0 {
		cfg.Redis.Retention = def.Redis.Retention
	}
	if cfg.Redis.InsightsTTL == 0 {
		cfg.Redis.InsightsTTL = def.Redis.InsightsTTL
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = def.Postgres.MaxConns
	}

	if cfg.Analyzer.WindowSize == 0 {
		cfg.Analyzer.WindowSize = def.Analyzer.WindowSize
	}
	if cfg.Analyzer.Threshold == 0 {
		cfg.Analyzer.Threshold = def.Analyzer.Threshold
	}
	if cfg.Analyzer.Workers == 0 {
		cfg.Analyzer.Workers = def.Analyzer.Workers
	}
	if cfg.Analyzer.QueueSize == 0 {
		cfg.Analyzer.QueueSize = def.Analyzer.QueueSize
	}
	if cfg.Analyzer.IdleTTL == 0 {
		cfg.Analyzer.IdleTTL = def.Analyzer.IdleTTL
	}

	if cfg.Features.WindowSize == 0 {
		cfg.Features.WindowSize = def.Features.WindowSize
	}
	if cfg.Features.StepSize == 0 {
		cfg.Features.StepSize = def.Features.StepSize
	}
	if len(cfg.Readiness.Weights) == 0 {
		cfg.Readiness.Weights = def.Readiness.Weights
	}
	cfg.Patterns = fillPatterns(cfg.Patterns, def.Patterns)

	if len(cfg.Insights.Weights) == 0 {
		cfg.Insights.Weights = def.Insights.Weights
	}
	if cfg.Insights.AnomalySigma == 0 {
		cfg.Insights.AnomalySigma = def.Insights.AnomalySigma
	}
	if cfg.Insights.SleepAnomalyRatio == 0 {
		cfg.Insights.SleepAnomalyRatio = def.Insights.SleepAnomalyRatio
	}
	if cfg.Insights.Policy == "" {
		cfg.Insights.Policy = def.Insights.Policy
	}
	if cfg.Insights.TimeFrame == "" {
		cfg.Insights.TimeFrame = def.Insights.TimeFrame
	}
	if cfg.Insights.HistoryDays == 0 {
		cfg.Insights.HistoryDays = def.Insights.HistoryDays
	}

	if cfg.RateLimit.RPS == 0 {
		cfg.RateLimit.RPS = def.RateLimit.RPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.Stream.WriteTimeout == 0 {
		cfg.Stream.WriteTimeout = def.Stream.WriteTimeout
	}
	if cfg.Stream.BufferSize == 0 {
		cfg.Stream.BufferSize = def.Stream.BufferSize
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

func fillPatterns(c, def patterns.Config) patterns.Config {
	if c.MinHistory == 0 {
		c.MinHistory = def.MinHistory
	}
	if c.LowReadinessThreshold == 0 {
		c.LowReadinessThreshold = def.LowReadinessThreshold
	}
	if c.StreakLength == 0 {
		c.StreakLength = def.StreakLength
	}
	if c.MinCorrelation == 0 {
		c.MinCorrelation = def.MinCorrelation
	}
	if c.SignificanceLevel == 0 {
		c.SignificanceLevel = def.SignificanceLevel
	}
	if c.TrendSlope == 0 {
		c.TrendSlope = def.TrendSlope
	}
	if c.WeekdayDip == 0 {
		c.WeekdayDip = def.WeekdayDip
	}
	if c.WeekdayMinSamples == 0 {
		c.WeekdayMinSamples = def.WeekdayMinSamples
	}
	return c
}

// Validate проверяет конфигурацию целиком
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Redis.Retention < 0 || c.Redis.InsightsTTL < 0 {
		errs = append(errs, errors.New("redis durations must be positive"))
	}
	if c.Analyzer.WindowSize < 2 {
		errs = append(errs, fmt.Errorf("analyzer.window_size must be at least 2, got %d", c.Analyzer.WindowSize))
	}
	if c.Analyzer.Threshold <= 0 {
		errs = append(errs, errors.New("analyzer.threshold must be positive"))
	}
	if c.Analyzer.Workers < 1 {
		errs = append(errs, errors.New("analyzer.workers must be at least 1"))
	}
	if c.Analyzer.QueueSize < 1 {
		errs = append(errs, errors.New("analyzer.queue_size must be at least 1"))
	}
	if c.Analyzer.IdleTTL < 0 {
		errs = append(errs, errors.New("analyzer.idle_ttl must not be negative"))
	}
	if c.Features.WindowSize < 1 || c.Features.StepSize < 1 {
		errs = append(errs, errors.New("features window and step must be positive"))
	}
	if err := c.Readiness.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("readiness.weights: %w", err))
	}
	if err := c.Insights.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("insights.weights: %w", err))
	}
	if _, err := insights.NewPolicy(c.Insights.Policy); err != nil {
		errs = append(errs, err)
	}
	if !c.Insights.TimeFrame.Valid() {
		errs = append(errs, fmt.Errorf("insights.timeframe %q is invalid", c.Insights.TimeFrame))
	}
	if c.Insights.HistoryDays < 1 {
		errs = append(errs, errors.New("insights.history_days must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("ratelimit.rps and ratelimit.burst must be positive"))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
