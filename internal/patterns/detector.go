// Package patterns ищет повторяющиеся закономерности в истории ежедневных анкет.
package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"nestor-insights/internal/models"
	"nestor-insights/internal/readiness"
	"nestor-insights/internal/stats"
)

// Идентификаторы паттернов стабильны между запусками
const (
	IDSleepPrecedesReadiness = "sleep-precedes-readiness"
	IDReadinessDeclining     = "readiness-trend-declining"
	IDReadinessImproving     = "readiness-trend-improving"
	IDLowReadinessStreak     = "low-readiness-streak"
	IDStressMoodInverse      = "stress-mood-inverse"
	weekdayDipPrefix         = "weekday-dip-"
)

// Config пороги детектора
type Config struct {
	MinHistory            int     `koanf:"min_history"`
	LowReadinessThreshold int     `koanf:"low_readiness_threshold"`
	StreakLength          int     `koanf:"streak_length"`
	MinCorrelation        float64 `koanf:"min_correlation"`
	SignificanceLevel     float64 `koanf:"significance_level"`
	TrendSlope            float64 `koanf:"trend_slope"`
	WeekdayDip            float64 `koanf:"weekday_dip"`
	WeekdayMinSamples     int     `koanf:"weekday_min_samples"`
}

// DefaultConfig пороги по умолчанию
func DefaultConfig() Config {
	return Config{
		MinHistory:            7,
		LowReadinessThreshold: 50,
		StreakLength:          3,
		MinCorrelation:        0.4,
		SignificanceLevel:     0.05,
		TrendSlope:            1.0,
		WeekdayDip:            10,
		WeekdayMinSamples:     2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinHistory <= 0 {
		c.MinHistory = d.MinHistory
	}
	if c.LowReadinessThreshold <= 0 {
		c.LowReadinessThreshold = d.LowReadinessThreshold
	}
	if c.StreakLength <= 0 {
		c.StreakLength = d.StreakLength
	}
	if c.MinCorrelation <= 0 {
		c.MinCorrelation = d.MinCorrelation
	}
	if c.SignificanceLevel <= 0 {
		c.SignificanceLevel = d.SignificanceLevel
	}
	if c.TrendSlope <= 0 {
		c.TrendSlope = d.TrendSlope
	}
	if c.WeekdayDip <= 0 {
		c.WeekdayDip = d.WeekdayDip
	}
	if c.WeekdayMinSamples <= 0 {
		c.WeekdayMinSamples = d.WeekdayMinSamples
	}
	return c
}

// Detector детерминированный поиск паттернов
type Detector struct {
	cfg    Config
	scorer *readiness.Scorer
}

// NewDetector создает детектор. scorer используется для анкет без сохраненной оценки.
func NewDetector(cfg Config, scorer *readiness.Scorer) *Detector {
	if scorer == nil {
		scorer = readiness.Default()
	}
	return &Detector{cfg: cfg.withDefaults(), scorer: scorer}
}

// day одна анкета, подготовленная к анализу
type day struct {
	date       time.Time
	readiness  float64
	assessment models.Assessment
}

// DetectAll ищет все известные паттерны. Результат зависит только от
// содержимого и порядка истории.
func (d *Detector) DetectAll(history []models.Assessment) []models.HealthPattern {
	patterns := []models.HealthPattern{}
	if len(history) < stats.MinCorrelationSamples {
		return patterns
	}

	days := d.prepare(history)
	detectedAt := days[len(days)-1].date

	detectors := []func([]day) *models.HealthPattern{
		d.sleepPrecedesReadiness,
		d.readinessTrend,
		d.lowReadinessStreak,
		d.stressMoodInverse,
		d.weekdayDip,
	}

	for _, detect := range detectors {
		p := detect(days)
		if p == nil {
			continue
		}
		p.LastDetected = detectedAt
		if p.FirstDetected.IsZero() {
			p.FirstDetected = days[0].date
		}
		p.Occurrences = 1
		patterns = append(patterns, *p)
	}

	return patterns
}

func (d *Detector) prepare(history []models.Assessment) []day {
	days := make([]day, len(history))
	for i, a := range history {
		date := a.Date
		if date.IsZero() {
			date = a.CompletedAt
		}
		days[i] = day{
			date:       date,
			readiness:  float64(d.scorer.ScoreOrStored(a)),
			assessment: a,
		}
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })
	return days
}

// sleepPrecedesReadiness качество сна ночью и готовность на следующий день
func (d *Detector) sleepPrecedesReadiness(days []day) *models.HealthPattern {
	var sleep, next []float64
	for i := 0; i+1 < len(days); i++ {
		v, ok := days[i].assessment.Response(models.QuestionSleepQuality)
		if !ok {
			continue
		}
		sleep = append(sleep, v)
		next = append(next, days[i+1].readiness)
	}

	r, p, ok := stats.Pearson(sleep, next)
	if !ok || r < d.cfg.MinCorrelation || p >= d.cfg.SignificanceLevel {
		return nil
	}

	return &models.HealthPattern{
		ID:          IDSleepPrecedesReadiness,
		Type:        models.PatternCorrelation,
		Title:       "Poor sleep precedes low readiness",
		Description: fmt.Sprintf("Nights with lower sleep quality are followed by lower readiness the next day (r=%.2f)", r),
		Metrics:     []string{models.QuestionSleepQuality, "readiness"},
		Strength:    r,
		Confidence:  1 - p,
		SampleSize:  len(sleep),
	}
}

// readinessTrend устойчивый рост или падение готовности
func (d *Detector) readinessTrend(days []day) *models.HealthPattern {
	if len(days) < d.cfg.MinHistory {
		return nil
	}

	values := make([]float64, len(days))
	index := make([]float64, len(days))
	for i, dd := range days {
		values[i] = dd.readiness
		index[i] = float64(i)
	}

	slope := stats.Slope(values)
	r, _, ok := stats.Pearson(index, values)
	if !ok || math.Abs(slope) < d.cfg.TrendSlope || math.Abs(r) < 0.5 {
		return nil
	}

	p := &models.HealthPattern{
		Type:       models.PatternTrend,
		Metrics:    []string{"readiness"},
		Strength:   slope,
		Confidence: math.Abs(r),
		SampleSize: len(values),
	}
	if slope < 0 {
		p.ID = IDReadinessDeclining
		p.Title = "Readiness is declining"
		p.Description = fmt.Sprintf("Readiness has dropped by about %.1f points per check-in over %d check-ins", -slope, len(values))
	} else {
		p.ID = IDReadinessImproving
		p.Title = "Readiness is improving"
		p.Description = fmt.Sprintf("Readiness has risen by about %.1f points per check-in over %d check-ins", slope, len(values))
	}
	return p
}

// lowReadinessStreak самая длинная серия дней с низкой готовностью
func (d *Detector) lowReadinessStreak(days []day) *models.HealthPattern {
	threshold := float64(d.cfg.LowReadinessThreshold)

	bestLen, bestStart := 0, 0
	curLen, curStart := 0, 0
	for i, dd := range days {
		if dd.readiness < threshold {
			if curLen == 0 {
				curStart = i
			}
			curLen++
			if curLen > bestLen {
				bestLen, bestStart = curLen, curStart
			}
		} else {
			curLen = 0
		}
	}

	if bestLen < d.cfg.StreakLength {
		return nil
	}

	return &models.HealthPattern{
		ID:            IDLowReadinessStreak,
		Type:          models.PatternStreak,
		Title:         "Extended low readiness",
		Description:   fmt.Sprintf("Readiness stayed below %d for %d consecutive check-ins", d.cfg.LowReadinessThreshold, bestLen),
		Metrics:       []string{"readiness"},
		Strength:      float64(bestLen),
		Confidence:    math.Min(1, float64(bestLen)/float64(2*d.cfg.StreakLength)),
		SampleSize:    len(days),
		FirstDetected: days[bestStart].date,
	}
}

// stressMoodInverse высокий стресс в те же дни, что и плохое настроение
func (d *Detector) stressMoodInverse(days []day) *models.HealthPattern {
	var stress, mood []float64
	for _, dd := range days {
		s, okS := dd.assessment.Response(models.QuestionStress)
		m, okM := dd.assessment.Response(models.QuestionMood)
		if !okS || !okM {
			continue
		}
		stress = append(stress, s)
		mood = append(mood, m)
	}

	r, p, ok := stats.Pearson(stress, mood)
	if !ok || r > -d.cfg.MinCorrelation || p >= d.cfg.SignificanceLevel {
		return nil
	}

	return &models.HealthPattern{
		ID:          IDStressMoodInverse,
		Type:        models.PatternCorrelation,
		Title:       "Stress weighs on mood",
		Description: fmt.Sprintf("Days with higher stress come with lower mood (r=%.2f)", r),
		Metrics:     []string{models.QuestionStress, models.QuestionMood},
		Strength:    r,
		Confidence:  1 - p,
		SampleSize:  len(stress),
	}
}

// weekdayDip день недели с заметно более низкой готовностью
func (d *Detector) weekdayDip(days []day) *models.HealthPattern {
	byWeekday := make(map[time.Weekday][]float64)
	all := make([]float64, 0, len(days))
	for _, dd := range days {
		byWeekday[dd.date.Weekday()] = append(byWeekday[dd.date.Weekday()], dd.readiness)
		all = append(all, dd.readiness)
	}
	if len(byWeekday) < 2 {
		return nil
	}

	overall := stats.Mean(all)
	worst := time.Weekday(-1)
	worstMean := math.Inf(1)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		values := byWeekday[wd]
		if len(values) < d.cfg.WeekdayMinSamples {
			continue
		}
		if m := stats.Mean(values); m < worstMean {
			worst, worstMean = wd, m
		}
	}

	if worst < 0 || overall-worstMean < d.cfg.WeekdayDip {
		return nil
	}

	name := worst.String()
	return &models.HealthPattern{
		ID:          weekdayDipPrefix + strings.ToLower(name),
		Type:        models.PatternWeekly,
		Title:       fmt.Sprintf("Lower readiness on %ss", name),
		Description: fmt.Sprintf("Readiness on %ss averages %.0f, %.0f points below your overall %.0f", name, worstMean, overall-worstMean, overall),
		Metrics:     []string{"readiness"},
		Strength:    overall - worstMean,
		Confidence:  math.Min(1, float64(len(byWeekday[worst]))/4),
		SampleSize:  len(byWeekday[worst]),
	}
}
