package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nestor-insights/internal/analytics"
	"nestor-insights/internal/cache"
	"nestor-insights/internal/config"
	"nestor-insights/internal/features"
	"nestor-insights/internal/handlers"
	"nestor-insights/internal/insights"
	"nestor-insights/internal/logging"
	"nestor-insights/internal/metrics"
	"nestor-insights/internal/patterns"
	"nestor-insights/internal/readiness"
	"nestor-insights/internal/storage"
	"nestor-insights/internal/storage/memory"
	"nestor-insights/internal/storage/migrations"
	"nestor-insights/internal/storage/postgres"
	"nestor-insights/internal/stream"
)

const serviceName = "nestor-insights"

func main() {
	// Конфигурация: YAML из NESTOR_CONFIG, затем environment
	cfg, err := config.Load(os.Getenv("NESTOR_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging, serviceName)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting health insights service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация Redis
	redisCache, err := cache.NewRedisCache(ctx, cache.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		Retention:   cfg.Redis.Retention,
		InsightsTTL: cfg.Redis.InsightsTTL,
	})
	if err != nil {
		return err
	}
	defer redisCache.Close()
	logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	assessments, patternStore, closeStores, err := openStores(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	scorer, err := readiness.NewScorer(cfg.Readiness.Weights)
	if err != nil {
		return err
	}

	engineCfg := cfg.Insights.Config
	engineCfg.Logger = logger.Named("insights")
	engineCfg.OnCategoryFailure = func(err *insights.CategoryComputationError) {
		metrics.CategoryFailures.WithLabelValues(err.Category).Inc()
	}
	engine, err := insights.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	// Инициализация анализатора
	analyzer := analytics.NewAnalyzer(analytics.Config{
		WindowSize: cfg.Analyzer.WindowSize,
		Threshold:  cfg.Analyzer.Threshold,
		SleepRatio: cfg.Insights.SleepAnomalyRatio,
		QueueSize:  cfg.Analyzer.QueueSize,
		IdleTTL:    cfg.Analyzer.IdleTTL,
		Logger:     logger.Named("analyzer"),
	})
	analyzer.Start(cfg.Analyzer.Workers)
	defer analyzer.Stop()
	logger.Info("Analyzer started",
		zap.Int("workers", cfg.Analyzer.Workers),
		zap.Int("window_size", cfg.Analyzer.WindowSize),
		zap.Float64("threshold", cfg.Analyzer.Threshold))

	hub := stream.NewHub(stream.Config{
		WriteTimeout: cfg.Stream.WriteTimeout,
		BufferSize:   cfg.Stream.BufferSize,
		Logger:       logger.Named("stream"),
	})
	defer hub.Close()

	// Запускаем goroutine для обработки результатов анализа
	go processAnalysisResults(ctx, analyzer, redisCache, hub, logger)

	handler := handlers.NewHandler(handlers.Deps{
		Analyzer:        analyzer,
		Cache:           redisCache,
		Engine:          engine,
		Extractor:       features.NewExtractor(cfg.Features),
		Scorer:          scorer,
		Detector:        patterns.NewDetector(cfg.Patterns, scorer),
		AssessmentStore: assessments,
		PatternStore:    patternStore,
		TimeFrame:       cfg.Insights.TimeFrame,
		HistoryDays:     cfg.Insights.HistoryDays,
		MaxBody:         cfg.Server.MaxBodyBytes,
		Logger:          logger.Named("http"),
	})

	// Настройка HTTP router
	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.Handle("/ws/anomalies", hub)

	// Prometheus metrics endpoint
	mux.Handle("/prometheus", promhttp.Handler())

	var root http.Handler = mux
	if cfg.RateLimit.Enabled {
		root = handlers.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware(mux)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Периодическое обновление метрик
	go updateMetrics(ctx, analyzer, hub, logger)

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// openStores выбирает Postgres при заданном DSN, иначе хранение в памяти
func openStores(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (storage.AssessmentStore, storage.PatternStore, func(), error) {
	if !cfg.Enabled() {
		logger.Warn("postgres dsn not set, assessments are kept in memory")
		return memory.NewAssessmentStore(), memory.NewPatternStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("Postgres migrations applied", zap.Int("applied", applied))
	}
	logger.Info("Connected to Postgres")

	return postgres.NewAssessmentStore(pool), postgres.NewPatternStore(pool), pool.Close, nil
}

// processAnalysisResults обрабатывает результаты анализа
func processAnalysisResults(ctx context.Context, analyzer *analytics.Analyzer, redisCache *cache.RedisCache, hub *stream.Hub, logger *zap.Logger) {
	for result := range analyzer.GetResultsChan() {
		start := time.Now()

		metrics.CurrentZScore.WithLabelValues(result.Metric).Set(result.ZScore)

		// Если обнаружена аномалия
		if result.IsAnomaly && result.Anomaly != nil {
			anomaly := *result.Anomaly
			metrics.AnomaliesDetected.WithLabelValues(anomaly.Metric, string(anomaly.Severity)).Inc()

			err := redisCache.StoreAnomaly(ctx, result.UserID, anomaly)
			metrics.RedisOperations.WithLabelValues("store_anomaly", metrics.Status(err)).Inc()
			if err != nil {
				logger.Warn("failed to store anomaly", zap.String("user_id", result.UserID), zap.Error(err))
			}

			delivered := hub.Publish(stream.Event{UserID: result.UserID, ZScore: result.ZScore, Anomaly: anomaly})
			logger.Info("anomaly detected",
				zap.String("user_id", result.UserID),
				zap.String("metric", anomaly.Metric),
				zap.String("severity", string(anomaly.Severity)),
				zap.Float64("value", anomaly.Value),
				zap.Float64("zscore", result.ZScore),
				zap.Int("subscribers", delivered))
		}

		// Записываем задержку анализа
		metrics.AnalysisLatency.Observe(time.Since(start).Seconds())
	}
}

// updateMetrics периодически обновляет метрики и удаляет простаивающие окна анализатора
func updateMetrics(ctx context.Context, analyzer *analytics.Analyzer, hub *stream.Hub, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if evicted := analyzer.EvictIdle(); evicted > 0 {
			logger.Debug("evicted idle analyzer windows", zap.Int("windows", evicted))
		}

		stats := analyzer.GetStats()

		if users, ok := stats["users_tracked"].(int); ok {
			metrics.ActiveUsers.Set(float64(users))
		}
		if queueSize, ok := stats["queue_size"].(int); ok {
			metrics.QueueSize.Set(float64(queueSize))
		}
		metrics.StreamClients.Set(float64(hub.Clients()))
	}
}
