package insights

import (
	"sort"
	"time"

	"nestor-insights/internal/models"
	"nestor-insights/internal/stats"
)

// Типы точек внутри составных рядов
const (
	TypeResting = "resting"

	TypeCalories = "calories"
	TypeProtein  = "protein"
	TypeWater    = "water"
)

// MetricFeatures агрегаты одного ряда
type MetricFeatures struct {
	Points  []models.HealthDataPoint
	Values  []float64
	Summary stats.Summary
}

// Count количество точек
func (m MetricFeatures) Count() int { return len(m.Values) }

// Empty ряд без точек
func (m MetricFeatures) Empty() bool { return len(m.Values) == 0 }

// Mean среднее, 0 для пустого ряда
func (m MetricFeatures) Mean() float64 { return m.Summary.Mean }

func newMetricFeatures(points []models.HealthDataPoint) MetricFeatures {
	values := models.Values(points)
	return MetricFeatures{
		Points:  points,
		Values:  values,
		Summary: stats.Summarize(values),
	}
}

// Features агрегаты всех метрик ряда. Отсутствующие метрики дают пустой MetricFeatures.
type Features struct {
	metrics map[string]MetricFeatures
}

// Metric агрегаты метрики по имени
func (f Features) Metric(name string) MetricFeatures {
	return f.metrics[name]
}

// Typed агрегаты точек метрики заданного типа
func (f Features) Typed(metric, typ string) MetricFeatures {
	return newMetricFeatures(models.FilterType(f.metrics[metric].Points, typ))
}

// RestingHeartRate точки пульса покоя, либо весь ряд пульса если тип не размечен
func (f Features) RestingHeartRate() MetricFeatures {
	if resting := f.Typed(models.MetricHeartRate, TypeResting); !resting.Empty() {
		return resting
	}
	return f.Metric(models.MetricHeartRate)
}

// Assessment ответы анкеты одной категории (тип точки - категория вопроса)
func (f Features) Assessment(category string) MetricFeatures {
	return f.Typed(models.MetricAssessments, category)
}

// Aggregate считает агрегаты всех метрик. Единственная ошибка - нечисловые значения.
func Aggregate(series *models.HealthDataSeries) (Features, error) {
	f := Features{metrics: make(map[string]MetricFeatures, len(models.AllMetrics))}
	if series == nil {
		series = &models.HealthDataSeries{}
	}

	for _, name := range models.AllMetrics {
		points := series.Metric(name)
		if !stats.AllFinite(models.Values(points)) {
			return Features{}, &ValidationError{Metric: name, Err: ErrNonFinite}
		}
		f.metrics[name] = newMetricFeatures(points)
	}

	return f, nil
}

// latest последняя метка времени среди точек
func latest(points []models.HealthDataPoint) time.Time {
	var t time.Time
	for _, p := range points {
		if p.Timestamp.After(t) {
			t = p.Timestamp
		}
	}
	return t
}

// withinFrame точки за последние frame.Days() дней относительно последней точки, по времени
func withinFrame(points []models.HealthDataPoint, frame models.TimeFrame) []models.HealthDataPoint {
	if len(points) == 0 {
		return nil
	}
	cutoff := latest(points).AddDate(0, 0, -frame.Days())

	out := make([]models.HealthDataPoint, 0, len(points))
	for _, p := range points {
		if p.Timestamp.After(cutoff) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// dailyMeans среднее значение метрики по календарным дням (UTC)
func dailyMeans(points []models.HealthDataPoint) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range points {
		key := p.Timestamp.UTC().Format(time.DateOnly)
		sums[key] += p.Value
		counts[key]++
	}

	means := make(map[string]float64, len(sums))
	for k, s := range sums {
		means[k] = s / float64(counts[k])
	}
	return means
}

// alignDaily пары значений двух метрик за общие дни в порядке дат
func alignDaily(a, b []models.HealthDataPoint) (x, y []float64) {
	ma := dailyMeans(a)
	mb := dailyMeans(b)

	days := make([]string, 0, len(ma))
	for d := range ma {
		if _, ok := mb[d]; ok {
			days = append(days, d)
		}
	}
	sort.Strings(days)

	for _, d := range days {
		x = append(x, ma[d])
		y = append(y, mb[d])
	}
	return x, y
}
