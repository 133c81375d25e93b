// Package stats содержит примитивы описательной статистики для временных рядов.
package stats

import "math"

// Summary базовые статистики ряда
type Summary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Mean вычисляет среднее значение, 0 для пустого ряда
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev вычисляет стандартное отклонение генеральной совокупности (делитель n).
// Для 0 или 1 элемента возвращает 0.
func StdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}

	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// Min минимальное значение, 0 для пустого ряда
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max максимальное значение, 0 для пустого ряда
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Summarize считает все базовые статистики за один вызов
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	return Summary{
		Mean: Mean(values),
		Std:  StdDev(values),
		Min:  Min(values),
		Max:  Max(values),
	}
}

// WindowedMeans скользящее окно размера window с шагом step.
// Неполное последнее окно отбрасывается. Если ряд короче окна, возвращает nil.
func WindowedMeans(values []float64, window, step int) []float64 {
	if window <= 0 || step <= 0 || len(values) < window {
		return nil
	}

	var means []float64
	for start := 0; start+window <= len(values); start += step {
		means = append(means, Mean(values[start:start+window]))
	}
	return means
}

// Slope наклон линейной регрессии по индексу отсчета (единиц на отсчет)
func Slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	meanY := Mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// CoefficientOfVariation отношение std к среднему, 0 при нулевом среднем
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / math.Abs(mean)
}

// MinCorrelationSamples минимальный размер выборки для корреляции
const MinCorrelationSamples = 3

// Pearson коэффициент корреляции Пирсона и двусторонний p-value
// (нормальное приближение t-статистики). ok=false если корреляцию посчитать нельзя.
func Pearson(x, y []float64) (r, pValue float64, ok bool) {
	n := len(x)
	if n != len(y) || n < MinCorrelationSamples {
		return 0, 1, false
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var numerator, denomX, denomY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	if denomX == 0 || denomY == 0 {
		return 0, 1, false
	}

	r = numerator / math.Sqrt(denomX*denomY)

	if math.Abs(r) >= 1.0 {
		return r, 0, true
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	pValue = 2 * (1 - normalCDF(math.Abs(t)))
	return r, pValue, true
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// AllFinite проверяет отсутствие NaN и Inf
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clamp ограничивает значение диапазоном [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
