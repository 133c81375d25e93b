package features

import (
	"time"

	"nestor-insights/internal/stats"
)

// SleepStages разбивка сна по фазам, минуты
type SleepStages struct {
	REM   float64 `json:"rem"`
	Light float64 `json:"light"`
	Deep  float64 `json:"deep"`
	Awake float64 `json:"awake"`
}

// SleepRecord одна ночь сна
type SleepRecord struct {
	Duration float64      `json:"duration"` // часы
	Quality  float64      `json:"quality"`  // 0-100
	Stages   *SleepStages `json:"stages,omitempty"`
}

// BiometricData сырые параллельные ряды с устройства.
// Timestamps обязателен, остальные ряды опциональны.
type BiometricData struct {
	HeartRate        []float64     `json:"heartRate,omitempty"`
	RespiratoryRate  []float64     `json:"respiratoryRate,omitempty"`
	OxygenSaturation []float64     `json:"oxygenSaturation,omitempty"`
	Temperature      []float64     `json:"temperature,omitempty"`
	Steps            []float64     `json:"steps,omitempty"`
	Activity         []string      `json:"activity,omitempty"`
	Sleep            []SleepRecord `json:"sleep,omitempty"`
	Timestamps       []time.Time   `json:"timestamps"`
}

// SleepStageFeatures признаки по фазам сна
type SleepStageFeatures struct {
	MeanREM      float64 `json:"meanRem"`
	MeanLight    float64 `json:"meanLight"`
	MeanDeep     float64 `json:"meanDeep"`
	QualityRatio float64 `json:"qualityRatio"`
}

// BiometricFeatures результат извлечения признаков.
//
// Features упакована построчно: строка i содержит i-е оконное среднее каждой
// метрики из FeatureNames. Число строк равно длине самого короткого оконного ряда,
// поэтому len(Features[i]) == len(FeatureNames) всегда. Полные оконные ряды
// доступны в Windows.
type BiometricFeatures struct {
	Features             [][]float64              `json:"features"`
	FeatureNames         []string                 `json:"featureNames"`
	Statistics           map[string]stats.Summary `json:"statistics"`
	Windows              map[string][]float64     `json:"windows"`
	SleepStages          *SleepStageFeatures      `json:"sleepStages,omitempty"`
	ActivityDistribution map[string]float64       `json:"activityDistribution,omitempty"`
	SampleCount          int                      `json:"sampleCount"`
	Start                time.Time                `json:"start"`
	End                  time.Time                `json:"end"`
}

// FeatureInfo описание признака для UI и документации
type FeatureInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Unit        string     `json:"unit"`
	Range       [2]float64 `json:"range"`
}
