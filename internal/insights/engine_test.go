package insights

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nestor-insights/internal/models"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func points(typ string, values ...float64) []models.HealthDataPoint {
	out := make([]models.HealthDataPoint, len(values))
	for i, v := range values {
		out[i] = models.HealthDataPoint{Type: typ, Value: v, Timestamp: base.AddDate(0, 0, i)}
	}
	return out
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	cfg.Now = func() time.Time { return base }
	cfg.NewID = func() string { return "result-1" }
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestGenerate_EmptySeries(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Generate(context.Background(), &models.HealthDataSeries{}, models.GenerateInsightsOptions{})
	require.NoError(t, err)
	require.NotNil(t, res)

	expected := map[string]int{
		models.CategorySleep:       65,
		models.CategoryActivity:    60,
		models.CategoryNutrition:   60,
		models.CategoryStress:      65,
		models.CategoryHeartHealth: 70,
		models.CategoryMetabolism:  65,
		models.CategoryImmunity:    70,
	}
	for name, score := range expected {
		c, ok := res.Categories.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, score, c.Score, name)
		assert.NotEmpty(t, c.Title, name)
		assert.NotNil(t, c.Trends, name)
		assert.NotNil(t, c.Correlations, name)
	}

	// 0.25*65 + 0.2*60 + 0.15*60 + 0.15*65 + 0.15*70 + 0.05*65 + 0.05*70 = 64.25
	assert.Equal(t, 64, res.OverallScore)
	assert.Contains(t, res.Summary, "fair")
	assert.Empty(t, res.Anomalies)
	assert.NotNil(t, res.Anomalies)
	assert.Empty(t, res.RiskFactors)
	assert.Equal(t, "result-1", res.ID)
	assert.Equal(t, base, res.Timestamp)
}

func TestGenerate_NilSeries(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Generate(context.Background(), nil, models.GenerateInsightsOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.OverallScore, 0)
	assert.LessOrEqual(t, res.OverallScore, 100)
}

func TestGenerate_CategoryIsolation(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	var failures []string
	cfg := DefaultConfig()
	cfg.Logger = zap.New(core)
	cfg.OnCategoryFailure = func(err *CategoryComputationError) {
		failures = append(failures, err.Category)
	}
	cfg.Scorers = map[string]CategoryScorer{
		models.CategoryActivity: func(*Input) (models.InsightCategory, error) {
			panic("synthetic failure")
		},
		models.CategoryNutrition: func(*Input) (models.InsightCategory, error) {
			return models.InsightCategory{}, errors.New("nutrition backend unavailable")
		},
	}
	e := newTestEngine(t, cfg)

	series := &models.HealthDataSeries{
		Sleep: points("", 8, 8, 8),
		Steps: points("", 9000, 9500, 10000),
	}
	res, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{})
	require.NoError(t, err)

	for _, name := range []string{models.CategoryActivity, models.CategoryNutrition} {
		c, _ := res.Categories.Get(name)
		assert.Equal(t, DegradedScore, c.Score, name)
		assert.Len(t, c.Recommendations, 1, name)
	}

	// остальные категории посчитаны обычным образом
	sleep, _ := res.Categories.Get(models.CategorySleep)
	assert.Equal(t, 100, sleep.Score)
	heart, _ := res.Categories.Get(models.CategoryHeartHealth)
	assert.Equal(t, DefaultHeartHealthScore, heart.Score)

	assert.Equal(t, []string{models.CategoryActivity, models.CategoryNutrition}, failures)
	assert.Equal(t, 2, logs.FilterMessage("category computation failed, using default").Len())
}

func TestGenerate_TrendFailureDegradesOneCategory(t *testing.T) {
	var failures []string
	cfg := DefaultConfig()
	cfg.OnCategoryFailure = func(err *CategoryComputationError) {
		failures = append(failures, err.Category)
	}
	e := newTestEngine(t, cfg)
	e.trends = func(category string, f Features, frame models.TimeFrame) []models.TrendResult {
		if category == models.CategorySleep {
			panic("trend failure")
		}
		return categoryTrends(category, f, frame)
	}
	e.correlations = func(category string, f Features) []models.CorrelationResult {
		if category == models.CategoryStress {
			panic("correlation failure")
		}
		return categoryCorrelations(category, f)
	}

	series := &models.HealthDataSeries{
		Sleep: points("", 8, 8, 8),
		Steps: points("", 6000, 8000, 10000),
	}
	res, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{})
	require.NoError(t, err)

	for _, name := range []string{models.CategorySleep, models.CategoryStress} {
		c, _ := res.Categories.Get(name)
		assert.Equal(t, DegradedScore, c.Score, name)
		assert.Len(t, c.Recommendations, 1, name)
	}
	activity, _ := res.Categories.Get(models.CategoryActivity)
	assert.NotEqual(t, DegradedScore, activity.Score)
	assert.NotEmpty(t, activity.Trends)

	assert.Equal(t, []string{models.CategorySleep, models.CategoryStress}, failures)
}

func TestGenerate_NonFiniteValuesFail(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	series := &models.HealthDataSeries{HeartRate: points("", 70, math.NaN())}
	res, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{})
	require.Error(t, err)
	assert.Nil(t, res)

	var genErr *InsightsGenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "aggregation", genErr.Stage)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, models.MetricHeartRate, vErr.Metric)
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestGenerate_CancelledContext(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Generate(ctx, &models.HealthDataSeries{}, models.GenerateInsightsOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_HeartRateAnomalies(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	series := &models.HealthDataSeries{HeartRate: points("", 70, 70, 70, 70, 200)}
	res, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{})
	require.NoError(t, err)

	require.Len(t, res.Anomalies, 1)
	a := res.Anomalies[0]
	assert.Equal(t, models.MetricHeartRate, a.Metric)
	assert.Equal(t, 200.0, a.Value)
	assert.Equal(t, models.SeverityMedium, a.Severity)
	assert.Equal(t, [2]float64{-8, 200}, a.ExpectedRange)
}

func TestGenerate_TogglesDisableSections(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	series := &models.HealthDataSeries{
		HeartRate: points("", 70, 70, 70, 70, 200),
		Sleep:     points("", 5, 5.5, 5.2, 5.4),
	}
	opts := models.GenerateInsightsOptions{
		IncludeAnomalies:       models.Bool(false),
		IncludeRiskFactors:     models.Bool(false),
		IncludeRecommendations: models.Bool(false),
		IncludeTrends:          models.Bool(false),
		IncludeCorrelations:    models.Bool(false),
	}
	res, err := e.Generate(context.Background(), series, opts)
	require.NoError(t, err)

	assert.Empty(t, res.Anomalies)
	assert.Empty(t, res.RiskFactors)
	assert.Empty(t, res.Recommendations.Daily)
	assert.Empty(t, res.Recommendations.Weekly)
	assert.Empty(t, res.Recommendations.LongTerm)
	sleep, _ := res.Categories.Get(models.CategorySleep)
	assert.Empty(t, sleep.Trends)

	res, err = e.Generate(context.Background(), series, models.GenerateInsightsOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Anomalies)
	assert.NotEmpty(t, res.RiskFactors)
	sleep, _ = res.Categories.Get(models.CategorySleep)
	assert.NotEmpty(t, sleep.Trends)
}

func TestGenerate_ProfileIsPerCall(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	series := &models.HealthDataSeries{Sleep: points("", 6, 6, 6)}

	short, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{
		UserProfile: &models.UserProfile{SleepGoalHours: 6},
	})
	require.NoError(t, err)

	def, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{})
	require.NoError(t, err)

	assert.Equal(t, 100, short.Categories.Sleep.Score)
	// цель по умолчанию 8 часов: 0.5*(100-40) + 0.2*100 = 50, делим на 0.7
	assert.Equal(t, 71, def.Categories.Sleep.Score)
}

func TestGenerate_ConcurrentCalls(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	series := &models.HealthDataSeries{
		HeartRate: points("", 60, 62, 64, 66),
		Steps:     points("", 4000, 6000, 8000, 10000),
	}

	var wg sync.WaitGroup
	scores := make([]int, 16)
	for i := range scores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Generate(context.Background(), series, models.GenerateInsightsOptions{
				UserProfile: &models.UserProfile{DailyStepGoal: 5000 + i*1000},
			})
			if err == nil {
				scores[i] = res.OverallScore
			}
		}(i)
	}
	wg.Wait()

	for i, s := range scores {
		assert.Greater(t, s, 0, "call %d", i)
	}
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(Config{Weights: CategoryWeights{"mood": 1}})
	assert.Error(t, err)

	_, err = NewEngine(Config{Policy: "random"})
	assert.Error(t, err)

	_, err = NewEngine(Config{Scorers: map[string]CategoryScorer{"hydration": scoreSleep}})
	assert.Error(t, err)

	e, err := NewEngine(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCategoryWeights(), e.Weights())
}
