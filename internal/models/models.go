package models

import (
	"fmt"
	"time"
)

// Имена метрик в HealthDataSeries
const (
	MetricHeartRate   = "heartRate"
	MetricHRV         = "hrv"
	MetricSpO2        = "spo2"
	MetricTemperature = "temperature"
	MetricSteps       = "steps"
	MetricSleep       = "sleep"
	MetricActivity    = "activity"
	MetricAssessments = "assessments"
	MetricNutrition   = "nutrition"
)

// AllMetrics перечисляет метрики в фиксированном порядке
var AllMetrics = []string{
	MetricHeartRate,
	MetricHRV,
	MetricSpO2,
	MetricTemperature,
	MetricSteps,
	MetricSleep,
	MetricActivity,
	MetricAssessments,
	MetricNutrition,
}

// HealthDataPoint одно измерение метрики
type HealthDataPoint struct {
	Type       string    `json:"type"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// HealthDataSeries набор временных рядов по категориям метрик
type HealthDataSeries struct {
	HeartRate   []HealthDataPoint `json:"heartRate,omitempty"`
	HRV         []HealthDataPoint `json:"hrv,omitempty"`
	SpO2        []HealthDataPoint `json:"spo2,omitempty"`
	Temperature []HealthDataPoint `json:"temperature,omitempty"`
	Steps       []HealthDataPoint `json:"steps,omitempty"`
	Sleep       []HealthDataPoint `json:"sleep,omitempty"`
	Activity    []HealthDataPoint `json:"activity,omitempty"`
	Assessments []HealthDataPoint `json:"assessments,omitempty"`
	Nutrition   []HealthDataPoint `json:"nutrition,omitempty"`
}

// Metric возвращает ряд по имени метрики
func (s *HealthDataSeries) Metric(name string) []HealthDataPoint {
	switch name {
	case MetricHeartRate:
		return s.HeartRate
	case MetricHRV:
		return s.HRV
	case MetricSpO2:
		return s.SpO2
	case MetricTemperature:
		return s.Temperature
	case MetricSteps:
		return s.Steps
	case MetricSleep:
		return s.Sleep
	case MetricActivity:
		return s.Activity
	case MetricAssessments:
		return s.Assessments
	case MetricNutrition:
		return s.Nutrition
	}
	return nil
}

// Append добавляет точку в ряд метрики
func (s *HealthDataSeries) Append(metric string, p HealthDataPoint) error {
	switch metric {
	case MetricHeartRate:
		s.HeartRate = append(s.HeartRate, p)
	case MetricHRV:
		s.HRV = append(s.HRV, p)
	case MetricSpO2:
		s.SpO2 = append(s.SpO2, p)
	case MetricTemperature:
		s.Temperature = append(s.Temperature, p)
	case MetricSteps:
		s.Steps = append(s.Steps, p)
	case MetricSleep:
		s.Sleep = append(s.Sleep, p)
	case MetricActivity:
		s.Activity = append(s.Activity, p)
	case MetricAssessments:
		s.Assessments = append(s.Assessments, p)
	case MetricNutrition:
		s.Nutrition = append(s.Nutrition, p)
	default:
		return fmt.Errorf("unknown metric %q", metric)
	}
	return nil
}

// Len общее количество точек во всех рядах
func (s *HealthDataSeries) Len() int {
	n := 0
	for _, m := range AllMetrics {
		n += len(s.Metric(m))
	}
	return n
}

// IsKnownMetric проверяет имя метрики
func IsKnownMetric(name string) bool {
	for _, m := range AllMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// Values извлекает значения точек
func Values(points []HealthDataPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// FilterType оставляет точки указанного типа
func FilterType(points []HealthDataPoint, typ string) []HealthDataPoint {
	var out []HealthDataPoint
	for _, p := range points {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// Reading показание, поступающее с устройства или из BaaS
type Reading struct {
	UserID string `json:"userId"`
	Metric string `json:"metric"`
	HealthDataPoint
}

// Validate проверяет обязательные поля показания
func (r *Reading) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if !IsKnownMetric(r.Metric) {
		return fmt.Errorf("unknown metric %q", r.Metric)
	}
	return nil
}
