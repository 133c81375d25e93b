package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"nestor-insights/internal/features"
	"nestor-insights/internal/metrics"
	"nestor-insights/internal/models"
	"nestor-insights/internal/readiness"
)

// AssessmentResponse ответ на сохранение анкеты
type AssessmentResponse struct {
	Assessment     *models.Assessment     `json:"assessment"`
	ReadinessScore int                    `json:"readinessScore"`
	Detected       []models.HealthPattern `json:"detected"`
	Patterns       []models.HealthPattern `json:"patterns"`
}

// Assessments обрабатывает POST /assessments и GET /assessments?user_id=&days=
func (h *Handler) Assessments(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/assessments"
	defer track(r, endpoint)()

	switch r.Method {
	case http.MethodPost:
		h.submitAssessment(w, r, endpoint)
	case http.MethodGet:
		h.listAssessments(w, r, endpoint)
	default:
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// submitAssessment сохраняет анкету, пересчитывает паттерны по истории и сливает их с сохраненными
func (h *Handler) submitAssessment(w http.ResponseWriter, r *http.Request, endpoint string) {
	var a models.Assessment
	if err := h.decode(w, r, &a); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if a.ReadinessScore != nil && !readiness.ValidScore(*a.ReadinessScore) {
		h.fail(w, r, endpoint, http.StatusBadRequest, "readinessScore must be between 0 and 100")
		return
	}
	if a.Date.IsZero() {
		a.Date = h.Now()
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = h.Now()
	}

	score := h.Scorer.ScoreOrStored(a)
	a.ReadinessScore = &score
	metrics.ReadinessScores.Observe(float64(score))

	ctx := r.Context()
	err := h.AssessmentStore.Upsert(ctx, &a)
	metrics.StoreOperations.WithLabelValues("upsert_assessment", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	since := a.Date.AddDate(0, 0, -h.HistoryDays)
	history, err := h.AssessmentStore.ListByUser(ctx, a.UserID, since)
	metrics.StoreOperations.WithLabelValues("list_assessments", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	detected := h.Detector.DetectAll(history)
	for _, p := range detected {
		metrics.PatternsDetected.WithLabelValues(string(p.Type)).Inc()
	}

	merged, err := h.PatternStore.Merge(ctx, a.UserID, detected)
	metrics.StoreOperations.WithLabelValues("merge_patterns", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	h.Logger.Debug("assessment stored",
		zap.String("user_id", a.UserID),
		zap.Int("readiness", score),
		zap.Int("history", len(history)),
		zap.Int("detected", len(detected)))

	h.writeJSON(w, r, endpoint, http.StatusOK, AssessmentResponse{
		Assessment:     &a,
		ReadinessScore: score,
		Detected:       detected,
		Patterns:       merged,
	})
}

func (h *Handler) listAssessments(w http.ResponseWriter, r *http.Request, endpoint string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.fail(w, r, endpoint, http.StatusBadRequest, "user_id parameter is required")
		return
	}
	days := h.HistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(w, r, endpoint, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	list, err := h.AssessmentStore.ListByUser(r.Context(), userID, h.Now().AddDate(0, 0, -days))
	metrics.StoreOperations.WithLabelValues("list_assessments", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]interface{}{
		"user_id":     userID,
		"count":       len(list),
		"assessments": list,
	})
}

// GetPatterns обрабатывает GET /patterns
func (h *Handler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/patterns"
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

	list, err := h.PatternStore.ListByUser(r.Context(), userID)
	metrics.StoreOperations.WithLabelValues("list_patterns", metrics.Status(err)).Inc()
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"count":    len(list),
		"patterns": list,
	})
}

// ExtractFeatures обрабатывает POST /features
func (h *Handler) ExtractFeatures(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/features"
	defer track(r, endpoint)()

	if r.Method != http.MethodPost {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var data features.BiometricData
	if err := h.decode(w, r, &data); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON")
		return
	}

	out, err := h.Extractor.Extract(data)
	if err != nil {
		h.failErr(w, r, endpoint, err)
		return
	}
	h.writeJSON(w, r, endpoint, http.StatusOK, out)
}

// FeatureInfo обрабатывает GET /features/info
func (h *Handler) FeatureInfo(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/features/info"
	defer track(r, endpoint)()

	if r.Method != http.MethodGet {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.writeJSON(w, r, endpoint, http.StatusOK, map[string]interface{}{
		"windowSize": h.Extractor.WindowSize(),
		"stepSize":   h.Extractor.StepSize(),
		"features":   h.Extractor.FeatureInfo(),
	})
}
