package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RateLimited отклоненные лимитером запросы
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// ReadingsReceived принятые показания
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_received_total",
			Help: "Total number of biometric readings received",
		},
		[]string{"metric"},
	)

	// ReadingsDropped показания, не попавшие в очередь анализатора
	ReadingsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readings_dropped_total",
			Help: "Total number of readings dropped because the analyzer queue was full",
		},
	)

	// AnomaliesDetected обнаруженные аномалии
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomalies_detected_total",
			Help: "Total number of anomalies detected",
		},
		[]string{"metric", "severity"},
	)

	// AnalysisLatency задержка обработки результата анализатора
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_latency_seconds",
			Help:    "Analysis processing latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// CurrentZScore последний z-score показания
	CurrentZScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "current_zscore",
			Help: "Z-score of the latest reading per metric",
		},
		[]string{"metric"},
	)

	// InsightsGenerated построенные отчеты
	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_generated_total",
			Help: "Total number of insights reports generated",
		},
		[]string{"source", "status"},
	)

	// InsightsDuration время построения отчета
	InsightsDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insights_generation_seconds",
			Help:    "Insights generation duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
	)

	// CategoryFailures категории, вычисленные по значению по умолчанию
	CategoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_category_failures_total",
			Help: "Total number of category computations that fell back to defaults",
		},
		[]string{"category"},
	)

	// OverallScore последняя общая оценка
	OverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insights_overall_score",
			Help:    "Distribution of overall health scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	// ReadinessScores распределение оценок готовности
	ReadinessScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readiness_score",
			Help:    "Distribution of computed readiness scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	// PatternsDetected обнаруженные паттерны
	PatternsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterns_detected_total",
			Help: "Total number of health patterns detected",
		},
		[]string{"type"},
	)

	// ActiveUsers пользователи с окнами в анализаторе
	ActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_users",
			Help: "Number of users tracked by the streaming analyzer",
		},
	)

	// QueueSize размер очереди обработки
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "processing_queue_size",
			Help: "Current size of the processing queue",
		},
	)

	// StreamClients подключенные websocket клиенты
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_clients",
			Help: "Number of connected anomaly stream clients",
		},
	)

	// RedisOperations операции с Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	// StoreOperations операции с хранилищем анкет и паттернов
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of assessment and pattern store operations",
		},
		[]string{"operation", "status"},
	)

	// CacheHitRate коэффициент попаданий в кэш
	CacheHitRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_hit_rate",
			Help: "Cache hit rate",
		},
		[]string{"cache_type"},
	)
)

// Status метка результата операции
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
