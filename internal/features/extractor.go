// Package features превращает сырые биометрические ряды в матрицу признаков.
package features

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"nestor-insights/internal/stats"
)

const (
	DefaultWindowSize = 24
	DefaultStepSize   = 12
)

// Префиксы метрик в статистике и именах признаков
const (
	PrefixHeartRate        = "heartRate"
	PrefixRespiratoryRate  = "respiratoryRate"
	PrefixOxygenSaturation = "oxygenSaturation"
	PrefixTemperature      = "temperature"
	PrefixSteps            = "steps"
	PrefixSleepDuration    = "sleepDuration"
	PrefixSleepQuality     = "sleepQuality"
)

// ErrNoTimestamps отсутствует обязательный ряд меток времени
var ErrNoTimestamps = errors.New("timestamps are required")

// ValidationError некорректные входные данные
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Config параметры скользящего окна
type Config struct {
	WindowSize int `koanf:"window_size"`
	StepSize   int `koanf:"step_size"`
}

// DefaultConfig окно 24 отсчета с шагом 12
func DefaultConfig() Config {
	return Config{WindowSize: DefaultWindowSize, StepSize: DefaultStepSize}
}

// Extractor извлекает признаки. Не хранит состояния между вызовами.
type Extractor struct {
	windowSize int
	stepSize   int
}

// NewExtractor создает экстрактор, нулевые параметры заменяются значениями по умолчанию
func NewExtractor(cfg Config) *Extractor {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.StepSize <= 0 {
		cfg.StepSize = DefaultStepSize
	}
	return &Extractor{windowSize: cfg.WindowSize, stepSize: cfg.StepSize}
}

// WindowSize размер окна
func (e *Extractor) WindowSize() int { return e.windowSize }

// StepSize шаг окна
func (e *Extractor) StepSize() int { return e.stepSize }

type namedSeries struct {
	prefix string
	values []float64
}

// Extract вычисляет статистики и оконные признаки по всем присутствующим метрикам
func (e *Extractor) Extract(data BiometricData) (*BiometricFeatures, error) {
	if len(data.Timestamps) == 0 {
		return nil, &ValidationError{Field: "timestamps", Err: ErrNoTimestamps}
	}

	series := []namedSeries{
		{PrefixHeartRate, data.HeartRate},
		{PrefixRespiratoryRate, data.RespiratoryRate},
		{PrefixOxygenSaturation, data.OxygenSaturation},
		{PrefixTemperature, data.Temperature},
		{PrefixSteps, data.Steps},
	}

	out := &BiometricFeatures{
		Statistics:  make(map[string]stats.Summary),
		Windows:     make(map[string][]float64),
		SampleCount: len(data.Timestamps),
	}
	out.Start, out.End = timeBounds(data)

	for _, s := range series {
		if len(s.values) == 0 {
			continue
		}
		if !stats.AllFinite(s.values) {
			return nil, &ValidationError{Field: s.prefix, Err: errors.New("contains non-finite values")}
		}

		out.Statistics[s.prefix] = stats.Summarize(s.values)

		if windows := stats.WindowedMeans(s.values, e.windowSize, e.stepSize); len(windows) > 0 {
			out.Windows[s.prefix] = windows
		}
	}

	if len(data.Sleep) > 0 {
		e.extractSleep(data.Sleep, out)
	}

	if len(data.Activity) > 0 {
		out.ActivityDistribution = activityDistribution(data.Activity)
	}

	out.FeatureNames, out.Features = pack(out.Windows, series)

	return out, nil
}

func (e *Extractor) extractSleep(records []SleepRecord, out *BiometricFeatures) {
	durations := make([]float64, len(records))
	qualities := make([]float64, len(records))
	for i, r := range records {
		durations[i] = r.Duration
		qualities[i] = r.Quality
	}

	out.Statistics[PrefixSleepDuration] = stats.Summarize(durations)
	out.Statistics[PrefixSleepQuality] = stats.Summarize(qualities)

	// фазы учитываются только если они есть у первой записи
	if records[0].Stages == nil {
		return
	}

	var rem, light, deep, ratios []float64
	for _, r := range records {
		if r.Stages == nil {
			continue
		}
		st := r.Stages
		rem = append(rem, st.REM)
		light = append(light, st.Light)
		deep = append(deep, st.Deep)

		total := st.Deep + st.REM + st.Light + st.Awake
		ratio := 0.0
		if total != 0 {
			ratio = (st.Deep + st.REM) / total
		}
		ratios = append(ratios, ratio)
	}

	out.SleepStages = &SleepStageFeatures{
		MeanREM:      stats.Mean(rem),
		MeanLight:    stats.Mean(light),
		MeanDeep:     stats.Mean(deep),
		QualityRatio: stats.Mean(ratios),
	}
}

// pack строит построчную матрицу, обрезая все оконные ряды до самого короткого
func pack(windows map[string][]float64, order []namedSeries) ([]string, [][]float64) {
	var names []string
	var columns [][]float64
	rows := -1

	for _, s := range order {
		w, ok := windows[s.prefix]
		if !ok {
			continue
		}
		names = append(names, s.prefix+"_windowMean")
		columns = append(columns, w)
		if rows < 0 || len(w) < rows {
			rows = len(w)
		}
	}

	if len(columns) == 0 {
		return []string{}, [][]float64{}
	}

	matrix := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = col[i]
		}
		matrix[i] = row
	}
	return names, matrix
}

func activityDistribution(labels []string) map[string]float64 {
	counts := make(map[string]int)
	for _, l := range labels {
		if l == "" {
			l = "unknown"
		}
		counts[l]++
	}

	dist := make(map[string]float64, len(counts))
	for label, c := range counts {
		dist[label] = float64(c) / float64(len(labels))
	}
	return dist
}

func timeBounds(data BiometricData) (start, end time.Time) {
	ts := make([]time.Time, len(data.Timestamps))
	copy(ts, data.Timestamps)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	return ts[0], ts[len(ts)-1]
}
