package models

import "time"

// Severity уровень серьезности аномалии или фактора риска
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// TrendDirection направление тренда
type TrendDirection string

const (
	TrendIncreasing  TrendDirection = "increasing"
	TrendDecreasing  TrendDirection = "decreasing"
	TrendStable      TrendDirection = "stable"
	TrendFluctuating TrendDirection = "fluctuating"
)

// TimeFrame горизонт анализа
type TimeFrame string

const (
	TimeFrameDay   TimeFrame = "day"
	TimeFrameWeek  TimeFrame = "week"
	TimeFrameMonth TimeFrame = "month"
)

// Valid проверяет значение TimeFrame
func (t TimeFrame) Valid() bool {
	switch t {
	case TimeFrameDay, TimeFrameWeek, TimeFrameMonth:
		return true
	}
	return false
}

// Days длительность горизонта в днях
func (t TimeFrame) Days() int {
	switch t {
	case TimeFrameDay:
		return 1
	case TimeFrameMonth:
		return 30
	}
	return 7
}

// Имена категорий результата
const (
	CategorySleep       = "sleep"
	CategoryActivity    = "activity"
	CategoryNutrition   = "nutrition"
	CategoryStress      = "stress"
	CategoryHeartHealth = "heartHealth"
	CategoryMetabolism  = "metabolism"
	CategoryImmunity    = "immunity"
)

// CategoryNames порядок категорий в отчете
var CategoryNames = []string{
	CategorySleep,
	CategoryActivity,
	CategoryNutrition,
	CategoryStress,
	CategoryHeartHealth,
	CategoryMetabolism,
	CategoryImmunity,
}

// TrendResult тренд метрики
type TrendResult struct {
	Metric       string         `json:"metric"`
	Direction    TrendDirection `json:"direction"`
	Rate         float64        `json:"rate"`
	Timeframe    TimeFrame      `json:"timeframe"`
	Significance float64        `json:"significance"`
	Description  string         `json:"description"`
}

// CorrelationResult корреляция двух метрик
type CorrelationResult struct {
	Metric1      string  `json:"metric1"`
	Metric2      string  `json:"metric2"`
	Strength     float64 `json:"strength"`
	Significance float64 `json:"significance"`
	Description  string  `json:"description"`
}

// InsightCategory оценка одной области здоровья
type InsightCategory struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Score           int                 `json:"score"`
	Recommendations []string            `json:"recommendations"`
	Trends          []TrendResult       `json:"trends"`
	Correlations    []CorrelationResult `json:"correlations"`
}

// Categories семь категорий отчета
type Categories struct {
	Sleep       InsightCategory `json:"sleep"`
	Activity    InsightCategory `json:"activity"`
	Nutrition   InsightCategory `json:"nutrition"`
	Stress      InsightCategory `json:"stress"`
	HeartHealth InsightCategory `json:"heartHealth"`
	Metabolism  InsightCategory `json:"metabolism"`
	Immunity    InsightCategory `json:"immunity"`
}

// Get возвращает категорию по имени
func (c *Categories) Get(name string) (InsightCategory, bool) {
	if p := c.ref(name); p != nil {
		return *p, true
	}
	return InsightCategory{}, false
}

// Set записывает категорию по имени
func (c *Categories) Set(name string, cat InsightCategory) bool {
	p := c.ref(name)
	if p == nil {
		return false
	}
	*p = cat
	return true
}

func (c *Categories) ref(name string) *InsightCategory {
	switch name {
	case CategorySleep:
		return &c.Sleep
	case CategoryActivity:
		return &c.Activity
	case CategoryNutrition:
		return &c.Nutrition
	case CategoryStress:
		return &c.Stress
	case CategoryHeartHealth:
		return &c.HeartHealth
	case CategoryMetabolism:
		return &c.Metabolism
	case CategoryImmunity:
		return &c.Immunity
	}
	return nil
}

// AnomalyResult отдельная точка, выбивающаяся из ряда
type AnomalyResult struct {
	Metric         string     `json:"metric"`
	Severity       Severity   `json:"severity"`
	Timestamp      time.Time  `json:"timestamp"`
	Value          float64    `json:"value"`
	ExpectedRange  [2]float64 `json:"expectedRange"`
	Description    string     `json:"description"`
	Recommendation string     `json:"recommendation"`
}

// RiskFactor фактор риска по пороговому правилу
type RiskFactor struct {
	Name                 string   `json:"name"`
	Category             string   `json:"category"`
	Probability          float64  `json:"probability"`
	Severity             Severity `json:"severity"`
	ImprovementPotential float64  `json:"improvementPotential"`
	Interventions        []string `json:"interventions"`
}

// Recommendations рекомендации по горизонтам
type Recommendations struct {
	Daily    []string `json:"daily"`
	Weekly   []string `json:"weekly"`
	LongTerm []string `json:"longTerm"`
}

// HealthInsightsResult итоговый отчет движка
type HealthInsightsResult struct {
	ID              string          `json:"id"`
	OverallScore    int             `json:"overallScore"`
	Summary         string          `json:"summary"`
	Categories      Categories      `json:"categories"`
	Timestamp       time.Time       `json:"timestamp"`
	Anomalies       []AnomalyResult `json:"anomalies"`
	Recommendations Recommendations `json:"recommendations"`
	RiskFactors     []RiskFactor    `json:"riskFactors"`
}

// UserProfile профиль пользователя, передается на каждый вызов
type UserProfile struct {
	Age            int      `json:"age,omitempty"`
	Sex            string   `json:"sex,omitempty"`
	WeightKg       float64  `json:"weightKg,omitempty"`
	HeightCm       float64  `json:"heightCm,omitempty"`
	ActivityLevel  string   `json:"activityLevel,omitempty"`
	DailyStepGoal  int      `json:"dailyStepGoal,omitempty"`
	SleepGoalHours float64  `json:"sleepGoalHours,omitempty"`
	Goals          []string `json:"goals,omitempty"`
	MedicalFlags   []string `json:"medicalFlags,omitempty"`
}

// GenerateInsightsOptions параметры генерации отчета.
// Отсутствующие флаги считаются включенными.
type GenerateInsightsOptions struct {
	TimeFrame              TimeFrame    `json:"timeFrame,omitempty"`
	IncludeRecommendations *bool        `json:"includeRecommendations,omitempty"`
	IncludeTrends          *bool        `json:"includeTrends,omitempty"`
	IncludeCorrelations    *bool        `json:"includeCorrelations,omitempty"`
	IncludeAnomalies       *bool        `json:"includeAnomalies,omitempty"`
	IncludeRiskFactors     *bool        `json:"includeRiskFactors,omitempty"`
	UserProfile            *UserProfile `json:"userProfile,omitempty"`
}

func enabled(b *bool) bool { return b == nil || *b }

func (o GenerateInsightsOptions) Recommendations() bool { return enabled(o.IncludeRecommendations) }
func (o GenerateInsightsOptions) Trends() bool          { return enabled(o.IncludeTrends) }
func (o GenerateInsightsOptions) Correlations() bool    { return enabled(o.IncludeCorrelations) }
func (o GenerateInsightsOptions) Anomalies() bool       { return enabled(o.IncludeAnomalies) }
func (o GenerateInsightsOptions) RiskFactors() bool     { return enabled(o.IncludeRiskFactors) }

// Frame возвращает горизонт анализа с учетом значения по умолчанию
func (o GenerateInsightsOptions) Frame() TimeFrame {
	if o.TimeFrame.Valid() {
		return o.TimeFrame
	}
	return TimeFrameWeek
}

// Bool вспомогательная функция для опций
func Bool(v bool) *bool { return &v }
