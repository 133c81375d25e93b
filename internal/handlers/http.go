package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"nestor-insights/internal/features"
	"nestor-insights/internal/insights"
	"nestor-insights/internal/metrics"
	"nestor-insights/internal/models"
	"nestor-insights/internal/patterns"
	"nestor-insights/internal/readiness"
	"nestor-insights/internal/storage"
)

// ReadingAnalyzer потоковый анализатор показаний
type ReadingAnalyzer interface {
	AddReading(r models.Reading) bool
	GetStats() map[string]interface{}
}

// ReadingCache хранилище показаний, отчетов и аномалий
type ReadingCache interface {
	StoreReadings(ctx context.Context, readings ...models.Reading) error
	LoadSeries(ctx context.Context, userID string, since time.Time) (*models.HealthDataSeries, error)
	StoreInsights(ctx context.Context, userID string, frame models.TimeFrame, result *models.HealthInsightsResult) error
	GetInsights(ctx context.Context, userID string, frame models.TimeFrame) (*models.HealthInsightsResult, bool, error)
	InvalidateInsights(ctx context.Context, userID string) error
	GetRecentAnomalies(ctx context.Context, userID string, limit int) ([]models.AnomalyResult, error)
	Ping(ctx context.Context) error
	GetStats() map[string]interface{}
}

// Deps зависимости обработчика
type Deps struct {
	Analyzer        ReadingAnalyzer
	Cache           ReadingCache
	Engine          *insights.Engine
	Extractor       *features.Extractor
	Scorer          *readiness.Scorer
	Detector        *patterns.Detector
	AssessmentStore storage.AssessmentStore
	PatternStore    storage.PatternStore
	TimeFrame       models.TimeFrame
	HistoryDays     int
	MaxBody         int64
	Logger          *zap.Logger
	Now             func() time.Time
}

// Handler обработчик HTTP запросов
type Handler struct {
	Deps

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// NewHandler создает новый обработчик
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if !deps.TimeFrame.Valid() {
		deps.TimeFrame = models.TimeFrameWeek
	}
	if deps.HistoryDays <= 0 {
		deps.HistoryDays = 90
	}
	if deps.MaxBody <= 0 {
		deps.MaxBody = 4 << 20
	}
	if deps.Extractor == nil {
		deps.Extractor = features.NewExtractor(features.DefaultConfig())
	}
	if deps.Scorer == nil {
		deps.Scorer = readiness.Default()
	}
	if deps.Detector == nil {
		deps.Detector = patterns.NewDetector(patterns.DefaultConfig(), deps.Scorer)
	}
	return &Handler{Deps: deps}
}

// Routes регистрирует обработчики в mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/readings", h.SubmitReading)
	mux.HandleFunc("/readings/batch", h.BatchSubmitReadings)
	mux.HandleFunc("/insights", h.Insights)
	mux.HandleFunc("/anomalies", h.GetAnomalies)
	mux.HandleFunc("/features", h.ExtractFeatures)
	mux.HandleFunc("/features/info", h.FeatureInfo)
	mux.HandleFunc("/assessments", h.Assessments)
	mux.HandleFunc("/patterns", h.GetPatterns)
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/stats", h.GetStats)
}

// track замеряет длительность запроса
func track(r *http.Request, endpoint string) func() {
	start := time.Now()
	return func() {
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, endpoint string, status int, body interface{}) {
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Warn("failed to encode response", zap.String("endpoint", endpoint), zap.Error(err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, endpoint string, status int, msg string) {
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
	http.Error(w, msg, status)
}

// failErr выбирает статус по типу ошибки
func (h *Handler) failErr(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var (
		insightsErr *insights.ValidationError
		featuresErr *features.ValidationError
	)
	switch {
	case errors.As(err, &insightsErr), errors.As(err, &featuresErr), errors.Is(err, storage.ErrInvalidInput):
		h.fail(w, r, endpoint, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		h.fail(w, r, endpoint, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.fail(w, r, endpoint, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.Logger.Error("request failed", zap.String("endpoint", endpoint), zap.Error(err))
		h.fail(w, r, endpoint, http.StatusInternalServerError, "Internal error")
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, h.MaxBody)).Decode(v)
}

// prepareReading заполняет время и проверяет показание
func (h *Handler) prepareReading(reading *models.Reading) error {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = h.Now()
	}
	if err := reading.Validate(); err != nil {
		return err
	}
	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		return insights.ErrNonFinite
	}
	return nil
}

// enqueue отправляет показание в анализатор и учитывает его в метриках
func (h *Handler) enqueue(reading models.Reading) {
	if !h.Analyzer.AddReading(reading) {
		metrics.ReadingsDropped.Inc()
	}
	metrics.ReadingsReceived.WithLabelValues(reading.Metric).Inc()
}

// storeReadings сохраняет показания и сбрасывает кэш отчетов затронутых пользователей
func (h *Handler) storeReadings(ctx context.Context, readings []models.Reading) error {
	err := h.Cache.StoreReadings(ctx, readings...)
	metrics.RedisOperations.WithLabelValues("store_readings", metrics.Status(err)).Inc()
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, reading := range readings {
		if seen[reading.UserID] {
			continue
		}
		seen[reading.UserID] = true
		err := h.Cache.InvalidateInsights(ctx, reading.UserID)
		metrics.RedisOperations.WithLabelValues("invalidate_insights", metrics.Status(err)).Inc()
		if err != nil {
			h.Logger.Warn("failed to invalidate insights", zap.String("user_id", reading.UserID), zap.Error(err))
		}
	}
	return nil
}

// SubmitReading обрабатывает POST /readings
func (h *Handler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/readings"
	defer track(r, endpoint)()

	if r.Method != http.MethodPost {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var reading models.Reading
	if err := h.decode(w, r, &reading); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.prepareReading(&reading); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storeReadings(r.Context(), []models.Reading{reading}); err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}
	h.enqueue(reading)

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]string{
		"status":  "accepted",
		"user_id": reading.UserID,
		"metric":  reading.Metric,
	})
}

// BatchSubmitReadings обрабатывает POST /readings/batch
func (h *Handler) BatchSubmitReadings(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/readings/batch"
	defer track(r, endpoint)()

	if r.Method != http.MethodPost {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var batch []models.Reading
	if err := h.decode(w, r, &batch); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON")
		return
	}

	accepted := make([]models.Reading, 0, len(batch))
	for _, reading := range batch {
		if err := h.prepareReading(&reading); err != nil {
			continue
		}
		accepted = append(accepted, reading)
	}

	if len(accepted) > 0 {
		if err := h.storeReadings(r.Context(), accepted); err != nil {
			h.failErr(w, r, endpoint, err)
			return
		}
	}
	for _, reading := range accepted {
		h.enqueue(reading)
	}

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]interface{}{
		"status":   "accepted",
		"total":    len(batch),
		"accepted": len(accepted),
	})
}

const errInvalidTimeFrame = "timeframe must be day, week or month"

// InsightsRequest тело POST /insights
type InsightsRequest struct {
	Series  *models.HealthDataSeries       `json:"series"`
	Options models.GenerateInsightsOptions `json:"options"`
}

// Insights обрабатывает POST /insights (ряды в теле) и GET /insights?user_id= (ряды из Redis)
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/insights"
	defer track(r, endpoint)()

	switch r.Method {
	case http.MethodPost:
		h.generateInline(w, r, endpoint)
	case http.MethodGet:
		h.generateStored(w, r, endpoint)
	default:
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) generateInline(w http.ResponseWriter, r *http.Request, endpoint string) {
	var req InsightsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON")
		return
	}
	switch {
	case req.Options.TimeFrame == "":
		req.Options.TimeFrame = h.TimeFrame
	case !req.Options.TimeFrame.Valid():
		h.fail(w, r, endpoint, http.StatusBadRequest, errInvalidTimeFrame)
		return
	}

	result, err := h.generate(r.Context(), "inline", req.Series, req.Options)
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}
	h.writeJSON(w, r, endpoint, http.StatusOK, result)
}

func (h *Handler) generateStored(w http.ResponseWriter, r *http.Request, endpoint string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.fail(w, r, endpoint, http.StatusBadRequest, "user_id parameter is required")
		return
	}

	frame := h.TimeFrame
	if tf := models.TimeFrame(r.URL.Query().Get("timeframe")); tf != "" {
		if !tf.Valid() {
			h.fail(w, r, endpoint, http.StatusBadRequest, errInvalidTimeFrame)
			return
		}
		frame = tf
	}

	ctx := r.Context()
	cached, ok, err := h.Cache.GetInsights(ctx, userID, frame)
	metrics.RedisOperations.WithLabelValues("get_insights", metrics.Status(err)).Inc()
	if err != nil {
		h.Logger.Warn("failed to read cached insights", zap.String("user_id", userID), zap.Error(err))
	}
	h.recordCacheLookup(ok)
	if ok {
		w.Header().Set("X-Cache", "HIT")
		h.writeJSON(w, r, endpoint, http.StatusOK, cached)
		return
	}

	since := h.Now().AddDate(0, 0, -h.HistoryDays)
	series, err := h.Cache.LoadSeries(ctx, userID, since)
	metrics.RedisOperations.WithLabelValues("load_series", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	result, err := h.generate(ctx, "stored", series, models.GenerateInsightsOptions{TimeFrame: frame})
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	err = h.Cache.StoreInsights(ctx, userID, frame, result)
	metrics.RedisOperations.WithLabelValues("store_insights", metrics.Status(err)).Inc()
	if err != nil {
		h.Logger.Warn("failed to cache insights", zap.String("user_id", userID), zap.Error(err))
	}

	w.Header().Set("X-Cache", "MISS")
	h.writeJSON(w, r, endpoint, http.StatusOK, result)
}

// recordCacheLookup обновляет долю попаданий в кэш отчетов
func (h *Handler) recordCacheLookup(hit bool) {
	if hit {
		h.cacheHits.Add(1)
	} else {
		h.cacheMisses.Add(1)
	}
	hits, misses := h.cacheHits.Load(), h.cacheMisses.Load()
	metrics.CacheHitRate.WithLabelValues("insights").Set(float64(hits) / float64(hits+misses))
}

func (h *Handler) generate(ctx context.Context, source string, series *models.HealthDataSeries, opts models.GenerateInsightsOptions) (*models.HealthInsightsResult, error) {
	start := time.Now()
	result, err := h.Engine.Generate(ctx, series, opts)
	metrics.InsightsDuration.Observe(time.Since(start).Seconds())
	metrics.InsightsGenerated.WithLabelValues(source, metrics.Status(err)).Inc()
	if err != nil {
		return nil, err
	}
	metrics.OverallScore.Observe(float64(result.OverallScore))
	return result, nil
}

// GetAnomalies обрабатывает GET /anomalies
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/anomalies"
	defer track(r, endpoint)()

	if r.Method != http.MethodGet {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.fail(w, r, endpoint, http.StatusBadRequest, "user_id parameter is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			h.fail(w, r, endpoint, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	anomalies, err := h.Cache.GetRecentAnomalies(r.Context(), userID, limit)
	metrics.RedisOperations.WithLabelValues("get_anomalies", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]interface{}{
		"user_id":       userID,
		"anomaly_count": len(anomalies),
		"anomalies":     anomalies,
	})
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Проверяем Redis
	redisOK := h.Cache.Ping(ctx) == nil

	status := "healthy"
	httpStatus := http.StatusOK

	if !redisOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	h.writeJSON(w, r, "/health", httpStatus, map[string]interface{}{
		"status":    status,
		"redis":     redisOK,
		"timestamp": h.Now(),
	})
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/stats"
	defer track(r, endpoint)()

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]interface{}{
		"analyzer":  h.Analyzer.GetStats(),
		"redis":     h.Cache.GetStats(),
		"timestamp": h.Now(),
	})
}
