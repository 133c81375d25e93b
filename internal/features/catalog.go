package features

// catalog справочник признаков с физиологическими диапазонами.
// Не вычисляется из данных, используется только для описания.
var catalog = []FeatureInfo{
	{Name: "heartRate_mean", Description: "Average heart rate", Unit: "bpm", Range: [2]float64{40, 200}},
	{Name: "heartRate_std", Description: "Heart rate variability across samples", Unit: "bpm", Range: [2]float64{0, 50}},
	{Name: "heartRate_windowMean", Description: "Heart rate averaged over a sliding window", Unit: "bpm", Range: [2]float64{40, 200}},
	{Name: "respiratoryRate_mean", Description: "Average respiratory rate", Unit: "breaths/min", Range: [2]float64{8, 30}},
	{Name: "respiratoryRate_windowMean", Description: "Respiratory rate averaged over a sliding window", Unit: "breaths/min", Range: [2]float64{8, 30}},
	{Name: "oxygenSaturation_mean", Description: "Average blood oxygen saturation", Unit: "%", Range: [2]float64{85, 100}},
	{Name: "oxygenSaturation_windowMean", Description: "SpO2 averaged over a sliding window", Unit: "%", Range: [2]float64{85, 100}},
	{Name: "temperature_mean", Description: "Average skin temperature", Unit: "°C", Range: [2]float64{35, 39}},
	{Name: "temperature_windowMean", Description: "Skin temperature averaged over a sliding window", Unit: "°C", Range: [2]float64{35, 39}},
	{Name: "steps_mean", Description: "Average step count per sample", Unit: "steps", Range: [2]float64{0, 30000}},
	{Name: "steps_windowMean", Description: "Step count averaged over a sliding window", Unit: "steps", Range: [2]float64{0, 30000}},
	{Name: "sleepDuration_mean", Description: "Average sleep duration", Unit: "h", Range: [2]float64{0, 14}},
	{Name: "sleepQuality_mean", Description: "Average sleep quality score", Unit: "score", Range: [2]float64{0, 100}},
	{Name: "sleep_remMean", Description: "Average REM sleep per night", Unit: "min", Range: [2]float64{0, 180}},
	{Name: "sleep_lightMean", Description: "Average light sleep per night", Unit: "min", Range: [2]float64{0, 360}},
	{Name: "sleep_deepMean", Description: "Average deep sleep per night", Unit: "min", Range: [2]float64{0, 180}},
	{Name: "sleep_qualityRatio", Description: "Share of deep and REM sleep in time in bed", Unit: "ratio", Range: [2]float64{0, 1}},
}

// Catalog возвращает копию справочника признаков
func Catalog() []FeatureInfo {
	out := make([]FeatureInfo, len(catalog))
	copy(out, catalog)
	return out
}

// FeatureInfo справочник признаков экстрактора
func (e *Extractor) FeatureInfo() []FeatureInfo {
	return Catalog()
}
