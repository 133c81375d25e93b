package insights

import (
	"fmt"
	"math"

	"nestor-insights/internal/models"
	"nestor-insights/internal/stats"
)

// metricRef метрика и, при необходимости, тип точек внутри нее
type metricRef struct {
	label  string
	metric string
	typ    string
}

func (r metricRef) points(f Features) []models.HealthDataPoint {
	if r.typ == "" {
		return f.Metric(r.metric).Points
	}
	return f.Typed(r.metric, r.typ).Points
}

var (
	refSleep     = metricRef{label: "sleep", metric: models.MetricSleep}
	refSteps     = metricRef{label: "steps", metric: models.MetricSteps}
	refActivity  = metricRef{label: "activeMinutes", metric: models.MetricActivity}
	refCalories  = metricRef{label: "calories", metric: models.MetricNutrition, typ: TypeCalories}
	refProtein   = metricRef{label: "protein", metric: models.MetricNutrition, typ: TypeProtein}
	refHeartRate = metricRef{label: "heartRate", metric: models.MetricHeartRate}
	refHRV       = metricRef{label: "hrv", metric: models.MetricHRV}
	refStress    = metricRef{label: "stress", metric: models.MetricAssessments, typ: models.QuestionStress}
	refMood      = metricRef{label: "mood", metric: models.MetricAssessments, typ: models.QuestionMood}
	refTemp      = metricRef{label: "temperature", metric: models.MetricTemperature}
	refSpO2      = metricRef{label: "spo2", metric: models.MetricSpO2}
)

// trendMetrics ряды, тренд которых прикладывается к категории
var trendMetrics = map[string][]metricRef{
	models.CategorySleep:       {refSleep},
	models.CategoryActivity:    {refSteps, refActivity},
	models.CategoryNutrition:   {refCalories, refProtein},
	models.CategoryStress:      {refStress, refHRV},
	models.CategoryHeartHealth: {refHeartRate, refHRV},
	models.CategoryMetabolism:  {refCalories},
	models.CategoryImmunity:    {refTemp, refSpO2},
}

// correlationPairs пары рядов, корреляция которых прикладывается к категории
var correlationPairs = map[string][][2]metricRef{
	models.CategorySleep:       {{refSleep, refHRV}, {refSleep, refHeartRate}},
	models.CategoryActivity:    {{refSteps, refSleep}},
	models.CategoryStress:      {{refStress, refHRV}, {refStress, refMood}},
	models.CategoryHeartHealth: {{refHeartRate, refHRV}},
	models.CategoryMetabolism:  {{refSteps, refCalories}},
}

// Пороги классификации тренда
const (
	minTrendSamples    = 3
	fluctuatingCV      = 0.25
	trendCorrelation   = 0.3
	stableChangeShare  = 0.05
	minCorrelationSize = 0.3
)

// Trend тренд ряда за горизонт frame. ok=false если точек недостаточно.
func Trend(label string, points []models.HealthDataPoint, frame models.TimeFrame) (models.TrendResult, bool) {
	window := withinFrame(points, frame)
	if len(window) < minTrendSamples {
		return models.TrendResult{}, false
	}

	values := models.Values(window)
	index := make([]float64, len(values))
	for i := range index {
		index[i] = float64(i)
	}

	slope := stats.Slope(values)
	r, _, _ := stats.Pearson(index, values)
	mean := stats.Mean(values)
	cv := stats.CoefficientOfVariation(values)
	change := slope * float64(len(values)-1)

	t := models.TrendResult{
		Metric:       label,
		Rate:         slope,
		Timeframe:    frame,
		Significance: math.Abs(r),
	}

	switch {
	case math.Abs(change) <= stableChangeShare*math.Abs(mean) && cv < fluctuatingCV:
		t.Direction = models.TrendStable
		t.Description = fmt.Sprintf("Your %s has been steady over the last %s", label, frame)
	case math.Abs(r) < trendCorrelation && cv >= fluctuatingCV:
		t.Direction = models.TrendFluctuating
		t.Description = fmt.Sprintf("Your %s has been irregular over the last %s", label, frame)
	case slope > 0:
		t.Direction = models.TrendIncreasing
		t.Description = fmt.Sprintf("Your %s rose by %.1f over the last %s", label, change, frame)
	case slope < 0:
		t.Direction = models.TrendDecreasing
		t.Description = fmt.Sprintf("Your %s fell by %.1f over the last %s", label, -change, frame)
	default:
		t.Direction = models.TrendStable
		t.Description = fmt.Sprintf("Your %s has been steady over the last %s", label, frame)
	}

	return t, true
}

// correlate корреляция двух рядов по общим дням
func correlate(a, b metricRef, f Features) (models.CorrelationResult, bool) {
	x, y := alignDaily(a.points(f), b.points(f))
	r, p, ok := stats.Pearson(x, y)
	if !ok || math.Abs(r) < minCorrelationSize {
		return models.CorrelationResult{}, false
	}

	relation := "rises"
	if r < 0 {
		relation = "falls"
	}
	return models.CorrelationResult{
		Metric1:      a.label,
		Metric2:      b.label,
		Strength:     r,
		Significance: p,
		Description:  fmt.Sprintf("When your %s goes up, your %s %s (r=%.2f)", a.label, b.label, relation, r),
	}, true
}

func categoryTrends(category string, f Features, frame models.TimeFrame) []models.TrendResult {
	out := []models.TrendResult{}
	for _, ref := range trendMetrics[category] {
		if t, ok := Trend(ref.label, ref.points(f), frame); ok {
			out = append(out, t)
		}
	}
	return out
}

func categoryCorrelations(category string, f Features) []models.CorrelationResult {
	out := []models.CorrelationResult{}
	for _, pair := range correlationPairs[category] {
		if c, ok := correlate(pair[0], pair[1], f); ok {
			out = append(out, c)
		}
	}
	return out
}
