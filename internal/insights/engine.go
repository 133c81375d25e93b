// Package insights строит сводный отчет о здоровье по временным рядам носимых устройств.
//
// Engine неизменяем после создания: профиль пользователя и параметры передаются
// в каждый вызов Generate, поэтому один экземпляр безопасно использовать из
// нескольких горутин.
package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nestor-insights/internal/models"
)

// Значения по умолчанию для правил аномалий
const (
	DefaultAnomalySigma      = 2.0
	DefaultSleepAnomalyRatio = 0.7
)

// Config параметры движка
type Config struct {
	Weights           CategoryWeights `koanf:"weights"`
	AnomalySigma      float64         `koanf:"anomaly_sigma"`
	SleepAnomalyRatio float64         `koanf:"sleep_anomaly_ratio"`
	Policy            string          `koanf:"recommendation_policy"`

	// RecommendationPolicy имеет приоритет над Policy
	RecommendationPolicy RecommendationPolicy `koanf:"-"`

	// Scorers заменяет функции отдельных категорий
	Scorers map[string]CategoryScorer `koanf:"-"`

	// OnCategoryFailure вызывается при каждом сбое категории
	OnCategoryFailure func(err *CategoryComputationError) `koanf:"-"`

	Logger *zap.Logger      `koanf:"-"`
	Now    func() time.Time `koanf:"-"`
	NewID  func() string    `koanf:"-"`
}

// DefaultConfig конфигурация по умолчанию
func DefaultConfig() Config {
	return Config{
		Weights:           DefaultCategoryWeights(),
		AnomalySigma:      DefaultAnomalySigma,
		SleepAnomalyRatio: DefaultSleepAnomalyRatio,
		Policy:            PolicyPriority,
	}
}

// Engine генератор отчетов
type Engine struct {
	weights    CategoryWeights
	sigma      float64
	sleepRatio float64
	policy     RecommendationPolicy
	scorers    map[string]CategoryScorer
	onFailure  func(err *CategoryComputationError)
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string

	// тренды и корреляции считаются внутри изоляции категории
	trends       func(category string, f Features, frame models.TimeFrame) []models.TrendResult
	correlations func(category string, f Features) []models.CorrelationResult
}

// NewEngine создает движок. Нулевые поля конфигурации заменяются значениями по умолчанию.
func NewEngine(cfg Config) (*Engine, error) {
	weights := cfg.Weights
	if len(weights) == 0 {
		weights = DefaultCategoryWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("insights weights: %w", err)
	}
	copied := make(CategoryWeights, len(weights))
	for k, v := range weights {
		copied[k] = v
	}

	policy := cfg.RecommendationPolicy
	if policy == nil {
		p, err := NewPolicy(cfg.Policy)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	scorers := DefaultScorers()
	for name, s := range cfg.Scorers {
		if !isCategory(name) {
			return nil, fmt.Errorf("scorer for unknown category %q", name)
		}
		if s != nil {
			scorers[name] = s
		}
	}

	e := &Engine{
		weights:    copied,
		sigma:      cfg.AnomalySigma,
		sleepRatio: cfg.SleepAnomalyRatio,
		policy:     policy,
		scorers:    scorers,
		onFailure:  cfg.OnCategoryFailure,
		logger:     cfg.Logger,
		now:        cfg.Now,
		newID:      cfg.NewID,

		trends:       categoryTrends,
		correlations: categoryCorrelations,
	}
	if e.sigma <= 0 {
		e.sigma = DefaultAnomalySigma
	}
	if e.sleepRatio <= 0 {
		e.sleepRatio = DefaultSleepAnomalyRatio
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	return e, nil
}

// Weights копия таблицы весов категорий
func (e *Engine) Weights() CategoryWeights {
	out := make(CategoryWeights, len(e.weights))
	for k, v := range e.weights {
		out[k] = v
	}
	return out
}

// Generate строит отчет. Сбой отдельной категории не прерывает вызов;
// ошибка возвращается только при сбое агрегации или отмене контекста.
func (e *Engine) Generate(ctx context.Context, series *models.HealthDataSeries, opts models.GenerateInsightsOptions) (result *models.HealthInsightsResult, err error) {
	stage := "aggregation"
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("insights generation panicked", zap.String("stage", stage), zap.Any("panic", r))
			result = nil
			err = &InsightsGenerationError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, &InsightsGenerationError{Stage: stage, Err: err}
	}
	if series == nil {
		series = &models.HealthDataSeries{}
	}

	features, err := Aggregate(series)
	if err != nil {
		return nil, &InsightsGenerationError{Stage: stage, Err: err}
	}

	in := &Input{Features: features, TimeFrame: opts.Frame()}
	if opts.UserProfile != nil {
		in.Profile = *opts.UserProfile
	}

	stage = "categories"
	var categories models.Categories
	scored := make([]ScoredCategory, 0, len(models.CategoryNames))
	for _, name := range models.CategoryNames {
		cat := e.computeCategory(name, in, opts)
		categories.Set(name, cat)
		scored = append(scored, ScoredCategory{Name: name, Category: cat})
	}

	if err := ctx.Err(); err != nil {
		return nil, &InsightsGenerationError{Stage: stage, Err: err}
	}

	stage = "anomalies"
	anomalies := []models.AnomalyResult{}
	if opts.Anomalies() {
		anomalies = DetectAnomalies(features, e.sigma, e.sleepRatio)
	}

	stage = "risk factors"
	risks := []models.RiskFactor{}
	if opts.RiskFactors() {
		risks = AssessRisks(features)
	}

	stage = "recommendations"
	recs := EmptyRecommendations()
	if opts.Recommendations() {
		recs = e.policy.Bucket(scored, risks)
	}

	stage = "summary"
	overall := OverallScore(categories, e.weights)

	result = &models.HealthInsightsResult{
		ID:              e.newID(),
		OverallScore:    overall,
		Summary:         Summarize(overall, categories, anomalies),
		Categories:      categories,
		Timestamp:       e.now().UTC(),
		Anomalies:       anomalies,
		Recommendations: recs,
		RiskFactors:     risks,
	}

	e.logger.Debug("insights generated",
		zap.String("id", result.ID),
		zap.Int("overall_score", overall),
		zap.Int("points", series.Len()),
		zap.Int("anomalies", len(anomalies)),
		zap.Int("risk_factors", len(risks)),
	)

	return result, nil
}

// computeCategory изолирует сбой одной категории вместе с ее трендами и корреляциями:
// ошибка или паника заменяются категорией с оценкой DegradedScore
func (e *Engine) computeCategory(name string, in *Input, opts models.GenerateInsightsOptions) (cat models.InsightCategory) {
	defer func() {
		if r := recover(); r != nil {
			cat = e.degrade(&CategoryComputationError{Category: name, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	cat, err := e.scorers[name](in)
	if err != nil {
		return e.degrade(&CategoryComputationError{Category: name, Err: err})
	}
	if cat.Recommendations == nil {
		cat.Recommendations = []string{}
	}
	cat.Trends = []models.TrendResult{}
	cat.Correlations = []models.CorrelationResult{}
	if opts.Trends() {
		cat.Trends = e.trends(name, in.Features, in.TimeFrame)
	}
	if opts.Correlations() {
		cat.Correlations = e.correlations(name, in.Features)
	}
	return cat
}

func (e *Engine) degrade(err *CategoryComputationError) models.InsightCategory {
	e.logger.Warn("category computation failed, using default",
		zap.String("category", err.Category),
		zap.Error(err),
	)
	if e.onFailure != nil {
		e.onFailure(err)
	}
	return degradedCategory(err.Category)
}
