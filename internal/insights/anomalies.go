package insights

import (
	"fmt"
	"math"
	"time"

	"nestor-insights/internal/models"
)

// severityRule серьезность отклонения вверх и вниз для метрики
type severityRule struct {
	above, below models.Severity
}

var anomalySeverity = map[string]severityRule{
	models.MetricHeartRate:   {above: models.SeverityMedium, below: models.SeverityLow},
	models.MetricHRV:         {above: models.SeverityLow, below: models.SeverityMedium},
	models.MetricSpO2:        {above: models.SeverityLow, below: models.SeverityHigh},
	models.MetricTemperature: {above: models.SeverityMedium, below: models.SeverityLow},
	models.MetricSteps:       {above: models.SeverityLow, below: models.SeverityLow},
	models.MetricActivity:    {above: models.SeverityLow, below: models.SeverityLow},
	models.MetricNutrition:   {above: models.SeverityLow, below: models.SeverityLow},
	models.MetricAssessments: {above: models.SeverityLow, below: models.SeverityLow},
}

var anomalyAdvice = map[string][2]string{
	models.MetricHeartRate:   {"Take it easy today and check in if it stays elevated", "A low reading can be a sensor glitch; recheck at rest"},
	models.MetricHRV:         {"Great recovery signal", "Consider a lighter training day to recover"},
	models.MetricSpO2:        {"No action needed", "Recheck your blood oxygen and seek care if it stays low"},
	models.MetricTemperature: {"Rest, hydrate, and watch for other symptoms", "Make sure the sensor fits snugly"},
	models.MetricSteps:       {"Balance big days with recovery", "Try to fit in some movement"},
	models.MetricActivity:    {"Balance intense days with recovery", "Try to fit in some movement"},
	models.MetricNutrition:   {"Review this log entry", "Review this log entry"},
	models.MetricAssessments: {"Note what made today different", "Note what made today different"},
}

// DetectAnomalies помечает точки, отклоняющиеся от среднего ряда не меньше чем на
// sigma стандартных отклонений. Для сна отдельное правило: точки ниже ratio*mean.
func DetectAnomalies(f Features, sigma, sleepRatio float64) []models.AnomalyResult {
	anomalies := []models.AnomalyResult{}

	for _, name := range models.AllMetrics {
		m := f.Metric(name)
		if m.Empty() {
			continue
		}
		if name == models.MetricSleep {
			anomalies = append(anomalies, sleepAnomalies(m, sleepRatio)...)
			continue
		}
		anomalies = append(anomalies, deviationAnomalies(name, m, sigma)...)
	}

	return anomalies
}

func deviationAnomalies(metric string, m MetricFeatures, sigma float64) []models.AnomalyResult {
	var out []models.AnomalyResult
	for _, p := range m.Points {
		if a, ok := DeviationAnomaly(metric, p.Timestamp, p.Value, m.Summary.Mean, m.Summary.Std, sigma); ok {
			out = append(out, a)
		}
	}
	return out
}

// boundaryTolerance относительный допуск на границе sigma*std.
// Точка ровно на границе (четыре равных значения и один выброс дают ровно 2σ)
// не должна зависеть от ошибок округления.
const boundaryTolerance = 1e-9

// Deviates отклоняется ли value от mean не меньше чем на sigma*std
func Deviates(value, mean, std, sigma float64) bool {
	if std <= 0 {
		return false
	}
	return math.Abs(value-mean) >= sigma*std*(1-boundaryTolerance)
}

// DeviationAnomaly проверяет одно значение против среднего и стандартного отклонения.
// При нулевом отклонении аномалий нет.
func DeviationAnomaly(metric string, ts time.Time, value, mean, std, sigma float64) (models.AnomalyResult, bool) {
	if !Deviates(value, mean, std, sigma) {
		return models.AnomalyResult{}, false
	}

	rule, ok := anomalySeverity[metric]
	if !ok {
		rule = severityRule{above: models.SeverityLow, below: models.SeverityLow}
	}
	advice := anomalyAdvice[metric]
	expected := [2]float64{mean - sigma*std, mean + sigma*std}

	a := models.AnomalyResult{
		Metric:        metric,
		Timestamp:     ts,
		Value:         value,
		ExpectedRange: expected,
	}
	if value > mean {
		a.Severity = rule.above
		a.Description = fmt.Sprintf("%s of %.1f is unusually high (expected %.1f to %.1f)", metric, value, expected[0], expected[1])
		a.Recommendation = advice[0]
	} else {
		a.Severity = rule.below
		a.Description = fmt.Sprintf("%s of %.1f is unusually low (expected %.1f to %.1f)", metric, value, expected[0], expected[1])
		a.Recommendation = advice[1]
	}
	if a.Recommendation == "" {
		a.Recommendation = "Keep an eye on this metric"
	}
	return a, true
}

func sleepAnomalies(m MetricFeatures, ratio float64) []models.AnomalyResult {
	var out []models.AnomalyResult
	for _, p := range m.Points {
		if a, ok := SleepAnomaly(p.Timestamp, p.Value, m.Summary.Mean, m.Summary.Max, ratio); ok {
			out = append(out, a)
		}
	}
	return out
}

// SleepAnomaly ночь короче ratio*mean часов. Серьезность всегда medium.
func SleepAnomaly(ts time.Time, value, mean, longest, ratio float64) (models.AnomalyResult, bool) {
	floor := ratio * mean
	if value >= floor {
		return models.AnomalyResult{}, false
	}
	return models.AnomalyResult{
		Metric:         models.MetricSleep,
		Severity:       models.SeverityMedium,
		Timestamp:      ts,
		Value:          value,
		ExpectedRange:  [2]float64{floor, longest},
		Description:    fmt.Sprintf("Only %.1f hours of sleep, well below your %.1f hour average", value, mean),
		Recommendation: "Plan an earlier night to recover the lost sleep",
	}, true
}
